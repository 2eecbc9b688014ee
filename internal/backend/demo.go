package backend

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/models"
)

// DemoSeed configures the fabricated accounts of the demo variant.
type DemoSeed struct {
	AdminEmail    string
	AdminPassword string
	UserPassword  string
	HashCost      int
	Now           time.Time
}

type demoAccount struct {
	id, email, name string
	role            models.AccountRole
	status          models.AccountStatus
	department      string
	jobTitle        string
	age             time.Duration
	admin           bool
}

// Demo is an in-memory backend used when no live database is configured.
type Demo struct {
	mu          sync.RWMutex
	accounts    map[string]models.Account
	credentials map[string]models.Credential
	byEmail     map[string]string
	preferences map[string]models.Preferences
	audit       []models.AuditLogEntry
	sessions    map[string]models.SessionRecord
	resets      map[string]models.ResetToken
	now         func() time.Time
}

// NewDemo builds the demo store seeded with four accounts.
func NewDemo(seed DemoSeed) (*Demo, error) {
	if seed.HashCost == 0 {
		seed.HashCost = bcrypt.DefaultCost
	}
	if seed.Now.IsZero() {
		seed.Now = time.Now().UTC()
	}
	d := &Demo{
		accounts:    make(map[string]models.Account),
		credentials: make(map[string]models.Credential),
		byEmail:     make(map[string]string),
		preferences: make(map[string]models.Preferences),
		sessions:    make(map[string]models.SessionRecord),
		resets:      make(map[string]models.ResetToken),
		now:         func() time.Time { return time.Now().UTC() },
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), seed.HashCost)
	if err != nil {
		return nil, err
	}
	userHash, err := bcrypt.GenerateFromPassword([]byte(seed.UserPassword), seed.HashCost)
	if err != nil {
		return nil, err
	}

	day := 24 * time.Hour
	seeds := []demoAccount{
		{id: "user-1", email: seed.AdminEmail, name: "Admin User", role: models.RoleAdmin, status: models.StatusActive, department: "IT", jobTitle: "System Administrator", age: 90 * day, admin: true},
		{id: "user-2", email: "john.doe@example.com", name: "John Doe", role: models.RoleUser, status: models.StatusActive, department: "Sales", jobTitle: "Account Executive", age: 60 * day},
		{id: "user-3", email: "jane.smith@example.com", name: "Jane Smith", role: models.RoleUser, status: models.StatusInactive, department: "Marketing", jobTitle: "Designer", age: 30 * day},
		{id: "user-4", email: "mike.wilson@example.com", name: "Mike Wilson", role: models.RoleModerator, status: models.StatusActive, department: "Support", jobTitle: "Community Lead", age: 10 * day},
	}
	for _, s := range seeds {
		created := seed.Now.Add(-s.age)
		lastLogin := seed.Now.Add(-s.age / 10)
		hash := userHash
		if s.admin {
			hash = adminHash
		}
		email := strings.ToLower(s.email)
		d.accounts[s.id] = models.Account{
			ID:                 s.id,
			Email:              email,
			FullName:           s.name,
			Role:               s.role,
			Status:             s.status,
			Department:         s.department,
			JobTitle:           s.jobTitle,
			EmailNotifications: true,
			LastLogin:          &lastLogin,
			CreatedAt:          created,
			UpdatedAt:          created,
		}
		d.credentials[s.id] = models.Credential{ID: s.id, Email: email, PasswordHash: string(hash), CreatedAt: created}
		d.byEmail[email] = s.id
		d.preferences[s.id] = models.DefaultPreferences(s.id)
	}
	return d, nil
}

// Mode implements Backend.
func (d *Demo) Mode() Mode { return ModeDemo }

// Ping always succeeds.
func (d *Demo) Ping(context.Context) error { return nil }

// Close is a no-op.
func (d *Demo) Close() error { return nil }

func (d *Demo) ListAccounts(context.Context) ([]models.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedLocked(func(models.Account) bool { return true }), nil
}

func (d *Demo) GetAccount(_ context.Context, id string) (*models.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (d *Demo) FindAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	account, ok := d.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (d *Demo) SearchAccounts(_ context.Context, query string) ([]models.Account, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedLocked(func(a models.Account) bool {
		return strings.Contains(strings.ToLower(a.Email), needle) || strings.Contains(strings.ToLower(a.FullName), needle)
	}), nil
}

func (d *Demo) UpsertProfile(_ context.Context, account *models.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	account.Email = strings.ToLower(account.Email)
	if existing, ok := d.accounts[account.ID]; ok {
		account.CreatedAt = existing.CreatedAt
		account.LastLogin = existing.LastLogin
		account.TOTPEnabled = existing.TOTPEnabled
		account.TOTPSecret = existing.TOTPSecret
	} else if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	d.accounts[account.ID] = *account
	return nil
}

func (d *Demo) UpdateProfile(_ context.Context, id string, fields models.ProfileFields) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fields.Apply(&account)
	account.UpdatedAt = d.now()
	d.accounts[id] = account
	return nil
}

func (d *Demo) DeleteProfile(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(d.accounts, id)
	delete(d.preferences, id)
	return nil
}

func (d *Demo) RecordLogin(_ context.Context, id string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.LastLogin = &at
	d.accounts[id] = account
	return nil
}

func (d *Demo) SetTOTP(_ context.Context, id string, enabled bool, secret string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.TOTPEnabled = enabled
	account.TOTPSecret = secret
	account.UpdatedAt = d.now()
	d.accounts[id] = account
	return nil
}

// CreateCredential also creates the default profile, as the signup trigger does on Live.
func (d *Demo) CreateCredential(_ context.Context, email, passwordHash, fullName string) (string, error) {
	email = strings.ToLower(email)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byEmail[email]; taken {
		return "", ErrConflict
	}
	now := d.now()
	id := uuid.NewString()
	d.credentials[id] = models.Credential{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}
	d.byEmail[email] = id
	if fullName == "" {
		fullName = email
	}
	d.accounts[id] = models.Account{
		ID:                 id,
		Email:              email,
		FullName:           fullName,
		Role:               models.RoleUser,
		Status:             models.StatusActive,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	d.preferences[id] = models.DefaultPreferences(id)
	return id, nil
}

func (d *Demo) GetCredential(_ context.Context, id string) (*models.Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cred, ok := d.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}

func (d *Demo) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cred := d.credentials[id]
	return &cred, nil
}

func (d *Demo) UpdateCredential(_ context.Context, id string, fields models.CredentialFields) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cred, ok := d.credentials[id]
	if !ok {
		return ErrNotFound
	}
	if fields.Email != nil {
		email := strings.ToLower(*fields.Email)
		if owner, taken := d.byEmail[email]; taken && owner != id {
			return ErrConflict
		}
		delete(d.byEmail, cred.Email)
		cred.Email = email
		d.byEmail[email] = id
		if account, ok := d.accounts[id]; ok {
			account.Email = email
			account.UpdatedAt = d.now()
			d.accounts[id] = account
		}
	}
	if fields.PasswordHash != nil {
		cred.PasswordHash = *fields.PasswordHash
	}
	d.credentials[id] = cred
	return nil
}

func (d *Demo) DeleteCredential(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cred, ok := d.credentials[id]
	if !ok {
		return ErrNotFound
	}
	delete(d.credentials, id)
	delete(d.byEmail, cred.Email)
	return nil
}

func (d *Demo) GetPreferences(_ context.Context, userID string) (*models.Preferences, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	prefs, ok := d.preferences[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &prefs, nil
}

func (d *Demo) UpsertPreferences(_ context.Context, prefs *models.Preferences) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	prefs.UpdatedAt = d.now()
	d.preferences[prefs.UserID] = *prefs
	return nil
}

func (d *Demo) AppendAudit(_ context.Context, entry *models.AuditLogEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = d.now()
	}
	d.audit = append(d.audit, *entry)
	return nil
}

// ListAudit returns entries newest first. Entries appended in the same instant keep
// reverse insertion order.
func (d *Demo) ListAudit(_ context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.AuditLogEntry, 0, len(d.audit))
	for i := len(d.audit) - 1; i >= 0; i-- {
		entry := d.audit[i]
		if since != nil && entry.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Demo) PurgeAuditBefore(_ context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.audit[:0]
	var purged int64
	for _, entry := range d.audit {
		if entry.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	d.audit = kept
	return purged, nil
}

func (d *Demo) CreateSession(_ context.Context, record *models.SessionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	d.sessions[record.TokenHash] = *record
	return nil
}

func (d *Demo) EndSession(_ context.Context, tokenHash string, endedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.sessions[tokenHash]
	if !ok || record.EndedAt != nil {
		return nil
	}
	record.EndedAt = &endedAt
	d.sessions[tokenHash] = record
	return nil
}

func (d *Demo) IsSessionOpen(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.sessions[tokenHash]
	return ok && record.EndedAt == nil && now.Before(record.ExpiresAt), nil
}

func (d *Demo) EndAccountSessions(_ context.Context, accountID string, endedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for hash, record := range d.sessions {
		if record.UserID != accountID || record.EndedAt != nil {
			continue
		}
		ended := endedAt
		record.EndedAt = &ended
		d.sessions[hash] = record
	}
	return nil
}

func (d *Demo) FindResetToken(_ context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	token, ok := d.resets[tokenHash]
	if !ok || token.UsedAt != nil || !now.Before(token.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &token, nil
}

func (d *Demo) CreateResetToken(_ context.Context, token *models.ResetToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = d.now()
	}
	d.resets[token.TokenHash] = *token
	return nil
}

func (d *Demo) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	token, ok := d.resets[tokenHash]
	if !ok || token.UsedAt != nil || !now.Before(token.ExpiresAt) {
		return nil, ErrNotFound
	}
	token.UsedAt = &now
	d.resets[tokenHash] = token
	return &token, nil
}

// ExecSQL is unavailable without a database.
func (d *Demo) ExecSQL(context.Context, string) error {
	return ErrDemoMode
}

// TableExists is unavailable without a database.
func (d *Demo) TableExists(context.Context, string) (bool, error) {
	return false, ErrDemoMode
}

func (d *Demo) sortedLocked(keep func(models.Account) bool) []models.Account {
	out := make([]models.Account, 0, len(d.accounts))
	for _, account := range d.accounts {
		if keep(account) {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
