package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin123"
	testUserPassword  = "user12345"
)

var testAdmin = &models.Actor{ID: "user-1", Email: testAdminEmail, IPAddress: "127.0.0.1"}

func newTestDemo(t *testing.T) *backend.Demo {
	t.Helper()
	demo, err := backend.NewDemo(backend.DemoSeed{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
		UserPassword:  testUserPassword,
		HashCost:      bcrypt.MinCost,
	})
	require.NoError(t, err)
	return demo
}

type memoryCache struct {
	mu            sync.Mutex
	items         map[string][]byte
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Invalidate(context.Context, string) error {
	m.mu.Lock()
	m.items = map[string][]byte{}
	m.invalidations++
	m.mu.Unlock()
	return nil
}

type captureNotifier struct {
	email string
	link  string
	sent  int
	err   error
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, link string, _ time.Time) error {
	if n.err != nil {
		return n.err
	}
	n.email, n.link = email, link
	n.sent++
	return nil
}

func (n *captureNotifier) token(t *testing.T) string {
	t.Helper()
	parsed, err := url.Parse(n.link)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

type clientFixture struct {
	store    *backend.Demo
	client   *AccountClient
	recorder *AuditRecorder
	cache    *memoryCache
	notifier *captureNotifier
	metrics  *MetricsService
}

func newClientFixture(t *testing.T) clientFixture {
	t.Helper()
	store := newTestDemo(t)
	metrics := NewMetricsService()
	recorder := NewAuditRecorder(store, metrics, zap.NewNop())
	cache := newMemoryCache()
	notifier := &captureNotifier{}
	client := NewAccountClient(store, recorder, cache, notifier, metrics, nil, zap.NewNop(), AccountClientConfig{
		HashCost: bcrypt.MinCost,
		ResetURL: "http://localhost:8080/reset-password",
	})
	return clientFixture{store: store, client: client, recorder: recorder, cache: cache, notifier: notifier, metrics: metrics}
}

func (f clientFixture) audit(t *testing.T) []models.AuditLogEntry {
	t.Helper()
	entries, err := f.store.ListAudit(context.Background(), nil, 0)
	require.NoError(t, err)
	return entries
}

func (f clientFixture) auditFor(t *testing.T, action string) []models.AuditLogEntry {
	t.Helper()
	var out []models.AuditLogEntry
	for _, e := range f.audit(t) {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

func hasMessage(messages []string, want string) bool {
	for _, m := range messages {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}
