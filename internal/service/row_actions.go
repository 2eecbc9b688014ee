package service

import (
	"context"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type rowActionClient interface {
	bulkAccountClient
	GetProfile(ctx context.Context, id string) (*models.Account, Result)
}

// RowActionService stages per-row actions from the user list and runs them
// once the signed-in user confirms.
type RowActionService struct {
	pending *PendingActions
	client  rowActionClient
}

// NewRowActionService constructs the service.
func NewRowActionService(pending *PendingActions, client rowActionClient) *RowActionService {
	if pending == nil {
		pending = NewPendingActions()
	}
	return &RowActionService{pending: pending, client: client}
}

// Stage records the action for the session after checking the account exists.
func (s *RowActionService) Stage(ctx context.Context, session *models.Session, kind models.PendingKind, accountID string) (*models.PendingAction, *models.Account, error) {
	if session == nil || session.Token == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	account, res := s.client.GetProfile(ctx, accountID)
	if !res.OK {
		return nil, nil, res.Err()
	}
	action, err := s.pending.Stage(session.Token, kind, accountID)
	if err != nil {
		return nil, nil, err
	}
	return &action, account, nil
}

// Current returns the staged action, if any.
func (s *RowActionService) Current(session *models.Session) (*models.PendingAction, bool) {
	if session == nil || session.Token == "" {
		return nil, false
	}
	action, ok := s.pending.Get(session.Token)
	if !ok {
		return nil, false
	}
	return &action, true
}

// Cancel discards the staged action.
func (s *RowActionService) Cancel(session *models.Session) {
	if session == nil || session.Token == "" {
		return
	}
	s.pending.Drop(session.Token)
}

// Confirm runs the staged action. An edit needs the changes to apply; when
// they are missing the action stays staged.
func (s *RowActionService) Confirm(ctx context.Context, session *models.Session, actor *models.Actor, edit *models.UpdateAccountRequest) (*models.PendingAction, Result) {
	if session == nil || session.Token == "" {
		return nil, failed(appErrors.ErrUnauthorized)
	}
	staged, ok := s.pending.Get(session.Token)
	if !ok {
		return nil, failed(appErrors.Clone(appErrors.ErrNotFound, "No pending action to confirm"))
	}
	if staged.Kind == models.PendingEdit && edit == nil {
		return &staged, failed(appErrors.Clone(appErrors.ErrValidation, "Edit changes are required"))
	}
	action, ok := s.pending.Take(session.Token)
	if !ok {
		return nil, failed(appErrors.Clone(appErrors.ErrNotFound, "No pending action to confirm"))
	}

	switch action.Kind {
	case models.PendingEdit:
		_, res := s.client.Update(ctx, actor, action.AccountID, *edit)
		return &action, res
	case models.PendingResetPassword:
		return &action, s.client.SendPasswordResetFor(ctx, actor, action.AccountID)
	case models.PendingDelete:
		return &action, s.client.Delete(ctx, actor, action.AccountID)
	}
	return &action, failed(appErrors.Clone(appErrors.ErrValidation, "unknown row action"))
}
