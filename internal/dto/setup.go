package dto

// TableStatus reports whether a bootstrap table exists.
type TableStatus struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// SetupStatus describes the backend schema and default admin state.
type SetupStatus struct {
	BackendMode string        `json:"backend_mode"`
	Banner      string        `json:"banner,omitempty"`
	Tables      []TableStatus `json:"tables"`
	Ready       bool          `json:"ready"`
	AdminExists bool          `json:"admin_exists"`
}

// BootstrapReport is the aggregate outcome of running the schema script.
type BootstrapReport struct {
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
}

// SeedReport summarises sample user creation.
type SeedReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// CleanAuditRequest asks to delete audit entries older than Days.
type CleanAuditRequest struct {
	Days int `json:"days" form:"days" validate:"required,min=1,max=3650"`
}
