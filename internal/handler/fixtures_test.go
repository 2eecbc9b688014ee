package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	"github.com/noah-isme/userflow-api/internal/web"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin123"
	testUserPassword  = "user12345"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope
}

// app wires the real services over the demo backend behind the full router.
type app struct {
	store    *backend.Demo
	client   *service.AccountClient
	recorder *service.AuditRecorder
	audits   *service.AuditService
	sessions *service.SessionService
	gate     *middleware.SessionGate
	router   *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := backend.NewDemo(backend.DemoSeed{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
		UserPassword:  testUserPassword,
		HashCost:      bcrypt.MinCost,
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := service.NewMetricsService()
	recorder := service.NewAuditRecorder(store, metrics, logger)
	client := service.NewAccountClient(store, recorder, nil, nil, metrics, nil, logger, service.AccountClientConfig{HashCost: bcrypt.MinCost})
	pending := service.NewPendingActions()
	sessions := service.NewSessionService(store, pending, service.SessionConfig{Secret: "test-secret", Issuer: "userflow"}, logger)
	gate := middleware.NewSessionGate(sessions, middleware.NewCookieStore("0123456789abcdef0123456789abcdef", false, models.SessionTTL), "")
	audits := service.NewAuditService(store, recorder, nil, logger)
	rows := service.NewRowActionService(pending, client)
	bulk := service.NewBulkDispatcher(client, metrics, nil, logger)
	portal := service.NewPortalService(client, store, audits, recorder, nil, logger)
	mfa := service.NewMFAService(store, recorder, "UserFlow", logger)
	selection := backend.Selection{Mode: backend.ModeDemo, Reason: "no database configured"}
	dashboard := service.NewDashboardService(client, audits, selection, logger)
	setup := service.NewSetupService(store, nil, client, recorder, selection, service.SetupConfig{AdminEmail: testAdminEmail}, logger)

	tmpl, err := web.Templates()
	require.NoError(t, err)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	Routes{
		Gate:      gate,
		Auth:      NewAuthHandler(client, sessions, gate, recorder),
		Accounts:  NewAccountHandler(client),
		Bulk:      NewBulkHandler(bulk),
		Pending:   NewPendingHandler(rows),
		Audit:     NewAuditHandler(audits),
		Dashboard: NewDashboardHandler(dashboard),
		Portal:    NewPortalHandler(portal, mfa),
		Setup:     NewSetupHandler(setup),
		Metrics:   NewMetricsHandler(metrics, store),
		Pages: NewPageHandler(PageDeps{
			Chrome:    PageChrome{Title: "UserFlow", Layout: "wide", Banner: selection.Banner()},
			Accounts:  client,
			Bulk:      bulk,
			Rows:      rows,
			Audits:    audits,
			Dashboard: dashboard,
			Setup:     setup,
			Portal:    portal,
			MFA:       mfa,
			Sessions:  sessions,
			Gate:      gate,
			Recorder:  recorder,
		}),
	}.Register(router)

	return &app{store: store, client: client, recorder: recorder, audits: audits, sessions: sessions, gate: gate, router: router}
}

// bearer opens a session for the account with id and returns its token.
func (a *app) bearer(t *testing.T, id string) string {
	t.Helper()
	account, err := a.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	session, err := a.sessions.Start(context.Background(), *account, models.SessionMeta{})
	require.NoError(t, err)
	token, _, err := a.sessions.IssueToken(session)
	require.NoError(t, err)
	return token
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// browser carries cookies between page requests.
type browser struct {
	t       *testing.T
	app     *app
	cookies map[string]*http.Cookie
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	b.app.router.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) login(email, password string) *httptest.ResponseRecorder {
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func (a *app) auditFor(t *testing.T, action string) []models.AuditLogEntry {
	t.Helper()
	entries, err := a.store.ListAudit(context.Background(), nil, 0)
	require.NoError(t, err)
	var matched []models.AuditLogEntry
	for _, entry := range entries {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}

// expiredToken signs a well-formed token for a session opened 25 hours ago.
func expiredToken(t *testing.T, accountID string) string {
	t.Helper()
	created := time.Now().Add(-25 * time.Hour)
	claims := models.SessionClaims{
		AccountID: accountID,
		Role:      models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "stale-session",
			Subject:   accountID,
			Issuer:    "userflow",
			IssuedAt:  jwt.NewNumericDate(created),
			ExpiresAt: jwt.NewNumericDate(created.Add(models.SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
