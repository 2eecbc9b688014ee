package service

import (
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

// PendingActions holds at most one staged row action per session token.
// Staging a new action replaces the previous one.
type PendingActions struct {
	mu    sync.RWMutex
	items map[string]models.PendingAction
	now   func() time.Time
}

// NewPendingActions constructs an empty store.
func NewPendingActions() *PendingActions {
	return &PendingActions{items: make(map[string]models.PendingAction), now: time.Now}
}

// Stage records kind against accountID for the session.
func (p *PendingActions) Stage(sessionToken string, kind models.PendingKind, accountID string) (models.PendingAction, error) {
	if sessionToken == "" {
		return models.PendingAction{}, appErrors.ErrUnauthorized
	}
	if _, ok := models.ParsePendingKind(string(kind)); !ok {
		return models.PendingAction{}, appErrors.Clone(appErrors.ErrValidation, "unknown row action")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return models.PendingAction{}, appErrors.Clone(appErrors.ErrValidation, "account id is required")
	}
	action := models.PendingAction{Kind: kind, AccountID: accountID, StagedAt: p.now().UTC()}
	p.mu.Lock()
	p.items[sessionToken] = action
	p.mu.Unlock()
	return action, nil
}

// Get returns the staged action without removing it.
func (p *PendingActions) Get(sessionToken string) (models.PendingAction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	action, ok := p.items[sessionToken]
	return action, ok
}

// Take removes and returns the staged action.
func (p *PendingActions) Take(sessionToken string) (models.PendingAction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	action, ok := p.items[sessionToken]
	if ok {
		delete(p.items, sessionToken)
	}
	return action, ok
}

// Drop discards whatever is staged for the session.
func (p *PendingActions) Drop(sessionToken string) {
	p.mu.Lock()
	delete(p.items, sessionToken)
	p.mu.Unlock()
}

// Sweep drops actions staged longer than maxAge ago and returns how many
// were removed.
func (p *PendingActions) Sweep(maxAge time.Duration) int {
	cutoff := p.now().UTC().Add(-maxAge)
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for token, action := range p.items {
		if action.StagedAt.Before(cutoff) {
			delete(p.items, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions with a staged action.
func (p *PendingActions) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
