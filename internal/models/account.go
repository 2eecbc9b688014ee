package models

import (
	"strings"
	"time"
)

// AccountRole represents the roles an account may hold.
type AccountRole string

const (
	RoleUser      AccountRole = "user"
	RoleAdmin     AccountRole = "admin"
	RoleModerator AccountRole = "moderator"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// FilterAll is the filter value that disables a role or status predicate.
const FilterAll = "All"

// Roles lists the valid account roles in display order.
var Roles = []AccountRole{RoleUser, RoleAdmin, RoleModerator}

// Statuses lists the valid account statuses in display order.
var Statuses = []AccountStatus{StatusActive, StatusInactive, StatusSuspended}

// ParseRole resolves a role case-insensitively.
func ParseRole(value string) (AccountRole, bool) {
	candidate := AccountRole(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range Roles {
		if role == candidate {
			return role, true
		}
	}
	return "", false
}

// ParseStatus resolves a status case-insensitively.
func ParseStatus(value string) (AccountStatus, bool) {
	candidate := AccountStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range Statuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Account is a managed user combining credential identity and profile attributes.
type Account struct {
	ID                 string        `db:"id" json:"id"`
	Email              string        `db:"email" json:"email"`
	FullName           string        `db:"full_name" json:"full_name"`
	AvatarURL          string        `db:"avatar_url" json:"avatar_url,omitempty"`
	Role               AccountRole   `db:"role" json:"role"`
	Status             AccountStatus `db:"status" json:"status"`
	Phone              string        `db:"phone" json:"phone,omitempty"`
	Department         string        `db:"department" json:"department,omitempty"`
	JobTitle           string        `db:"job_title" json:"job_title,omitempty"`
	Bio                string        `db:"bio" json:"bio,omitempty"`
	Location           string        `db:"location" json:"location,omitempty"`
	Website            string        `db:"website" json:"website,omitempty"`
	EmailNotifications bool          `db:"email_notifications" json:"email_notifications"`
	TOTPEnabled        bool          `db:"totp_enabled" json:"totp_enabled"`
	TOTPSecret         string        `db:"totp_secret" json:"-"`
	LastLogin          *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may sign in.
func (a Account) IsActive() bool {
	return a.Status == StatusActive
}

// ProfileFields carries the non-credential attributes written to the profile row.
type ProfileFields struct {
	FullName           *string        `json:"full_name,omitempty" validate:"omitempty,max=120"`
	AvatarURL          *string        `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Role               *AccountRole   `json:"role,omitempty" validate:"omitempty,oneof=user admin moderator"`
	Status             *AccountStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
	Phone              *string        `json:"phone,omitempty" validate:"omitempty,max=40"`
	Department         *string        `json:"department,omitempty" validate:"omitempty,max=120"`
	JobTitle           *string        `json:"job_title,omitempty" validate:"omitempty,max=120"`
	Bio                *string        `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Location           *string        `json:"location,omitempty" validate:"omitempty,max=120"`
	Website            *string        `json:"website,omitempty" validate:"omitempty,url"`
	EmailNotifications *bool          `json:"email_notifications,omitempty"`
}

// IsEmpty reports whether no profile field is set.
func (p ProfileFields) IsEmpty() bool {
	return p.FullName == nil && p.AvatarURL == nil && p.Role == nil && p.Status == nil &&
		p.Phone == nil && p.Department == nil && p.JobTitle == nil && p.Bio == nil &&
		p.Location == nil && p.Website == nil && p.EmailNotifications == nil
}

// Apply copies every set field onto the account.
func (p ProfileFields) Apply(a *Account) {
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		a.AvatarURL = *p.AvatarURL
	}
	if p.Role != nil {
		a.Role = *p.Role
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Department != nil {
		a.Department = *p.Department
	}
	if p.JobTitle != nil {
		a.JobTitle = *p.JobTitle
	}
	if p.Bio != nil {
		a.Bio = *p.Bio
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Website != nil {
		a.Website = *p.Website
	}
	if p.EmailNotifications != nil {
		a.EmailNotifications = *p.EmailNotifications
	}
}

// CredentialFields carries the fields owned by the credential row.
type CredentialFields struct {
	Email        *string
	PasswordHash *string
}

// IsEmpty reports whether no credential field is set.
func (c CredentialFields) IsEmpty() bool {
	return c.Email == nil && c.PasswordHash == nil
}

// Credential is the sign-in identity kept in auth.users.
type Credential struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"encrypted_password"`
	CreatedAt    time.Time `db:"created_at"`
}

// CreateAccountRequest is the payload for creating an account.
type CreateAccountRequest struct {
	Email           string        `json:"email" form:"email" validate:"required,account_email"`
	Password        string        `json:"password" form:"password" validate:"required,strong_password"`
	ConfirmPassword string        `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string        `json:"full_name" form:"full_name" validate:"required,max=120"`
	Role            AccountRole   `json:"role" form:"role" validate:"omitempty,oneof=user admin moderator"`
	Status          AccountStatus `json:"status" form:"status" validate:"omitempty,oneof=active inactive suspended"`
	Phone           string        `json:"phone" form:"phone" validate:"omitempty,max=40"`
	Department      string        `json:"department" form:"department" validate:"omitempty,max=120"`
	JobTitle        string        `json:"job_title" form:"job_title" validate:"omitempty,max=120"`
	Bio             string        `json:"bio" form:"bio" validate:"omitempty,max=2000"`
	Location        string        `json:"location" form:"location" validate:"omitempty,max=120"`
	Website         string        `json:"website" form:"website" validate:"omitempty,url"`
}

// UpdateAccountRequest patches an account. Email and Password are credential fields.
type UpdateAccountRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,account_email"`
	Password *string `json:"password,omitempty" validate:"omitempty,strong_password"`
	ProfileFields
}

// AccountQuery narrows the account list. Empty or "All" role/status keeps everything.
type AccountQuery struct {
	Search string `form:"search" json:"search"`
	Role   string `form:"role" json:"role"`
	Status string `form:"status" json:"status"`
}

// AccountStats aggregates account counts.
type AccountStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Admin    int `json:"admin"`
	User     int `json:"user"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// SelfProfileRequest is the subset of profile fields an account may change on itself.
type SelfProfileRequest struct {
	FullName           *string `json:"full_name,omitempty" form:"full_name" validate:"omitempty,min=1,max=120"`
	AvatarURL          *string `json:"avatar_url,omitempty" form:"avatar_url" validate:"omitempty,url"`
	Phone              *string `json:"phone,omitempty" form:"phone" validate:"omitempty,max=40"`
	Department         *string `json:"department,omitempty" form:"department" validate:"omitempty,max=120"`
	JobTitle           *string `json:"job_title,omitempty" form:"job_title" validate:"omitempty,max=120"`
	Bio                *string `json:"bio,omitempty" form:"bio" validate:"omitempty,max=2000"`
	Location           *string `json:"location,omitempty" form:"location" validate:"omitempty,max=120"`
	Website            *string `json:"website,omitempty" form:"website" validate:"omitempty,url"`
	EmailNotifications *bool   `json:"email_notifications,omitempty" form:"email_notifications"`
}

// Fields converts the request into profile fields. Role and status are never set.
func (r SelfProfileRequest) Fields() ProfileFields {
	return ProfileFields{
		FullName:           r.FullName,
		AvatarURL:          r.AvatarURL,
		Phone:              r.Phone,
		Department:         r.Department,
		JobTitle:           r.JobTitle,
		Bio:                r.Bio,
		Location:           r.Location,
		Website:            r.Website,
		EmailNotifications: r.EmailNotifications,
	}
}
