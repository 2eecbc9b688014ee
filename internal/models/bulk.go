package models

// BulkOperation enumerates operations the bulk dispatcher can apply.
type BulkOperation string

const (
	BulkActivate      BulkOperation = "activate"
	BulkDeactivate    BulkOperation = "deactivate"
	BulkChangeRole    BulkOperation = "change_role"
	BulkDelete        BulkOperation = "delete"
	BulkPasswordReset BulkOperation = "password_reset"
)

// AuditAction returns the per-item audit action name.
func (o BulkOperation) AuditAction() string {
	return "bulk_" + string(o)
}

// BulkRequest selects accounts and the operation applied to each.
type BulkRequest struct {
	Operation BulkOperation `json:"operation" form:"operation" validate:"required,oneof=activate deactivate change_role delete password_reset"`
	IDs       []string      `json:"ids" form:"ids" validate:"required,min=1,dive,required"`
	Role      AccountRole   `json:"role,omitempty" form:"role" validate:"omitempty,oneof=user admin moderator"`
}

// BulkItemResult is the outcome for a single identifier.
type BulkItemResult struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// BulkReport is the outcome of a bulk dispatch.
type BulkReport struct {
	Operation BulkOperation    `json:"operation"`
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Results   []BulkItemResult `json:"results"`
}

// Failed returns the number of identifiers that did not succeed.
func (r BulkReport) Failed() int {
	return r.Attempted - r.Succeeded
}
