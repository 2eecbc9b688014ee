package models

import "time"

// SignInScope selects which roles a sign-in accepts.
type SignInScope int

const (
	// ScopeAny accepts every role.
	ScopeAny SignInScope = iota
	// ScopeAdmin rejects any role other than admin.
	ScopeAdmin
)

// SignInRequest holds credentials for authenticating an account.
type SignInRequest struct {
	Email     string `json:"email" form:"email" validate:"required,account_email"`
	Password  string `json:"password" form:"password" validate:"required"`
	OTP       string `json:"otp,omitempty" form:"otp" validate:"omitempty,len=6,numeric"`
	IP        string `json:"-" form:"-"`
	UserAgent string `json:"-" form:"-"`
}

// SignInResponse returns the issued bearer token and the session owner.
type SignInResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Account     Account   `json:"account"`
}

// SignUpRequest registers a self-service account.
type SignUpRequest struct {
	Email           string `json:"email" form:"email" validate:"required,account_email"`
	Password        string `json:"password" form:"password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string `json:"full_name" form:"full_name" validate:"required,max=120"`
}

// ChangePasswordRequest payload for updating one's own password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" form:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" form:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// PasswordResetEmailRequest payload for initiating the reset flow.
type PasswordResetEmailRequest struct {
	Email string `json:"email" form:"email" validate:"required,account_email"`
}

// ManualResetRequest is an admin-initiated password reset.
type ManualResetRequest struct {
	NewPassword     string `json:"new_password" form:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ConfirmResetRequest completes the reset flow with the emailed token.
type ConfirmResetRequest struct {
	Token           string `json:"token" form:"token" validate:"required"`
	NewPassword     string `json:"new_password" form:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ResetToken is a persisted password_reset_tokens row.
type ResetToken struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// TOTPSetup carries a freshly generated, not yet enabled, TOTP secret.
type TOTPSetup struct {
	Secret    string `json:"secret"`
	URL       string `json:"url"`
	QRCodePNG string `json:"qr_code_png"`
}

// TOTPCodeRequest carries a six digit authenticator code.
type TOTPCodeRequest struct {
	Code string `json:"code" form:"code" validate:"required,len=6,numeric"`
}
