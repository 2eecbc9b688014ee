package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions written by the service.
const (
	AuditActionLogin                = "login"
	AuditActionLogout               = "logout"
	AuditActionSignUp               = "sign_up"
	AuditActionCreateUser           = "create_user"
	AuditActionUpdateUser           = "update_user"
	AuditActionDeleteUser           = "delete_user"
	AuditActionPasswordResetEmail   = "password_reset_email"
	AuditActionPasswordResetManual  = "password_reset_manual"
	AuditActionPasswordResetConfirm = "password_reset_confirm"
	AuditActionChangePassword       = "change_password"
	AuditActionUpdateProfile        = "update_profile"
	AuditActionUpdatePreferences    = "update_preferences"
	AuditActionExportOwnData        = "export_own_data"
	AuditActionEnableTOTP           = "enable_2fa"
	AuditActionDisableTOTP          = "disable_2fa"
	AuditActionCleanAuditLogs       = "clean_audit_logs"
	AuditActionSeedSampleUsers      = "seed_sample_users"
	AuditActionRunBootstrap         = "run_bootstrap"
	AuditActionRequestExport        = "request_export"

	// AuditBatchBulk tags entries written by the bulk dispatcher.
	AuditBatchBulk = "bulk_operation"
)

// AuditOutcome records whether the audited action succeeded.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// OutcomeOf maps a boolean result to an outcome.
func OutcomeOf(ok bool) AuditOutcome {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// AuditDetails is the free-form payload stored as JSONB.
type AuditDetails map[string]interface{}

// Value marshals details for persistence.
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the details map.
func (d *AuditDetails) Scan(value interface{}) error {
	*d = AuditDetails{}
	return scanJSON(value, d)
}

// String renders the details as compact JSON for display and search.
func (d AuditDetails) String() string {
	if len(d) == 0 {
		return ""
	}
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return string(data)
}

// AuditLogEntry is an immutable record of a mutating action.
type AuditLogEntry struct {
	ID         string       `db:"id" json:"id"`
	ActorID    string       `db:"admin_id" json:"actor_id"`
	ActorEmail string       `db:"admin_email" json:"actor_email"`
	Action     string       `db:"action" json:"action"`
	TargetID   *string      `db:"target_user_id" json:"target_id,omitempty"`
	Details    AuditDetails `db:"details" json:"details,omitempty"`
	IPAddress  string       `db:"ip_address" json:"ip_address"`
	Outcome    AuditOutcome `db:"status" json:"outcome"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// Target returns the target id or an empty string.
func (e AuditLogEntry) Target() string {
	if e.TargetID == nil {
		return ""
	}
	return *e.TargetID
}

// Actor identifies who performed an action and from where.
type Actor struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// ActorFromAccount builds an actor for flows where the account acts on itself.
func ActorFromAccount(a Account, ip, userAgent string) *Actor {
	return &Actor{ID: a.ID, Email: a.Email, IPAddress: ip, UserAgent: userAgent}
}

// AuditPeriod narrows the audit viewer by age.
type AuditPeriod string

const (
	PeriodToday  AuditPeriod = "today"
	Period7Days  AuditPeriod = "7d"
	Period30Days AuditPeriod = "30d"
	Period90Days AuditPeriod = "90d"
	PeriodAll    AuditPeriod = "all"
)

// AuditFilter narrows the audit log list.
type AuditFilter struct {
	Period AuditPeriod `form:"period" json:"period"`
	Action string      `form:"action" json:"action"`
	Actor  string      `form:"actor" json:"actor"`
	Search string      `form:"search" json:"search"`
}

// AuditSummary aggregates a filtered audit list.
type AuditSummary struct {
	Total              int            `json:"total"`
	Succeeded          int            `json:"succeeded"`
	Failed             int            `json:"failed"`
	UniqueActors       int            `json:"unique_actors"`
	AffectedTargets    int            `json:"affected_targets"`
	ActionDistribution map[string]int `json:"action_distribution"`
}
