package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UserFlow API",
        "description": "Account administration and self-service portal over a hosted backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Sign in, sign out and password reset"},
        {"name": "Accounts", "description": "Administrator account management"},
        {"name": "Pending", "description": "Row actions awaiting confirmation"},
        {"name": "Audit", "description": "Audit log viewer and retention"},
        {"name": "Dashboard", "description": "Summary and analytics"},
        {"name": "Portal", "description": "Self-service account portal"},
        {"name": "Setup", "description": "Schema bootstrap and seeding"},
        {"name": "Exports", "description": "Asynchronous CSV, PDF and JSON exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Administrator sign in",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignInRequest"}}
                ],
                "responses": {
                    "200": {"description": "Signed in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Inactive account or not an administrator", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/portal/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Portal sign in for any role",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignInRequest"}}
                ],
                "responses": {
                    "200": {"description": "Signed in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "tags": ["Portal"],
                "summary": "Register a self-service account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignUpRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Signed out"}}
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or expired session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/password/forgot": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Request a password reset link",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"email": {"type": "string"}}}}
                ],
                "responses": {"202": {"description": "Link sent", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/password/reset": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Complete a password reset",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmResetRequest"}}
                ],
                "responses": {
                    "200": {"description": "Password changed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts": {
            "get": {
                "tags": ["Accounts"],
                "summary": "List accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string", "description": "Case-insensitive email or name substring"},
                    {"name": "role", "in": "query", "type": "string", "description": "user, admin, moderator or All"},
                    {"name": "status", "in": "query", "type": "string", "description": "active, inactive, suspended or All"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Accounts"],
                "summary": "Create account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAccountRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/stats": {
            "get": {
                "tags": ["Accounts"],
                "summary": "Account statistics",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/accounts/bulk": {
            "post": {
                "tags": ["Accounts"],
                "summary": "Run a bulk account operation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRequest"}}
                ],
                "responses": {"200": {"description": "Per-item report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/accounts/{id}": {
            "get": {
                "tags": ["Accounts"],
                "summary": "Get account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Accounts"],
                "summary": "Update account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAccountRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Accounts"],
                "summary": "Delete account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Own account", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{id}/password-reset": {
            "post": {
                "tags": ["Accounts"],
                "summary": "Email a reset link to the account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"202": {"description": "Sent", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/accounts/{id}/password": {
            "put": {
                "tags": ["Accounts"],
                "summary": "Set a new password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualResetRequest"}}
                ],
                "responses": {"200": {"description": "Changed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/accounts/{id}/activity": {
            "get": {
                "tags": ["Audit"],
                "summary": "Audit entries targeting the account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/accounts/{id}/actions/{kind}": {
            "post": {
                "tags": ["Pending"],
                "summary": "Stage a row action",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["edit", "reset_password", "delete"]}
                ],
                "responses": {"200": {"description": "Staged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/pending": {
            "get": {
                "tags": ["Pending"],
                "summary": "Show the staged row action",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing staged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Pending"],
                "summary": "Drop the staged row action",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Dropped"}}
            }
        },
        "/pending/confirm": {
            "post": {
                "tags": ["Pending"],
                "summary": "Confirm the staged row action",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/UpdateAccountRequest"}}
                ],
                "responses": {"200": {"description": "Done", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Audit log",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["today", "7d", "30d", "90d", "all"]},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "actor", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit/clean": {
            "post": {
                "tags": ["Audit"],
                "summary": "Delete audit entries older than a number of days",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"days": {"type": "integer"}}}}
                ],
                "responses": {"200": {"description": "Removed count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Admin dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/analytics": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Analytics overview",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/me": {
            "get": {
                "tags": ["Portal"],
                "summary": "Own profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Portal"],
                "summary": "Update own profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/me/password": {
            "put": {
                "tags": ["Portal"],
                "summary": "Change own password",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Changed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/me/preferences": {
            "get": {
                "tags": ["Portal"],
                "summary": "Own preferences",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Portal"],
                "summary": "Save own preferences",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/me/export": {
            "get": {
                "tags": ["Portal"],
                "summary": "Download own data as JSON",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {"200": {"description": "Attachment"}}
            }
        },
        "/me/2fa/setup": {
            "post": {
                "tags": ["Portal"],
                "summary": "Start two-factor setup",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Secret and QR code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/me/2fa/enable": {
            "post": {
                "tags": ["Portal"],
                "summary": "Enable two-factor",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Enabled"}}
            }
        },
        "/me/2fa/disable": {
            "post": {
                "tags": ["Portal"],
                "summary": "Disable two-factor",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Disabled"}}
            }
        },
        "/setup/status": {
            "get": {
                "tags": ["Setup"],
                "summary": "Schema and default admin status",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/setup/bootstrap": {
            "post": {
                "tags": ["Setup"],
                "summary": "Run the schema script",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Demo backend", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/setup/seed": {
            "post": {
                "tags": ["Setup"],
                "summary": "Create sample accounts",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SignInRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "otp": {"type": "string", "description": "Authenticator code when two-factor is enabled"}
            }
        },
        "SignUpRequest": {
            "type": "object",
            "required": ["email", "password", "confirm_password", "full_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "ConfirmResetRequest": {
            "type": "object",
            "required": ["token", "new_password", "confirm_password"],
            "properties": {
                "token": {"type": "string"},
                "new_password": {"type": "string"},
                "confirm_password": {"type": "string"}
            }
        },
        "ManualResetRequest": {
            "type": "object",
            "required": ["new_password", "confirm_password"],
            "properties": {
                "new_password": {"type": "string"},
                "confirm_password": {"type": "string"}
            }
        },
        "CreateAccountRequest": {
            "type": "object",
            "required": ["email", "password", "confirm_password", "full_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin", "moderator"]},
                "status": {"type": "string", "enum": ["active", "inactive", "suspended"]},
                "phone": {"type": "string"},
                "department": {"type": "string"},
                "job_title": {"type": "string"},
                "bio": {"type": "string"},
                "location": {"type": "string"},
                "website": {"type": "string"}
            }
        },
        "UpdateAccountRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin", "moderator"]},
                "status": {"type": "string", "enum": ["active", "inactive", "suspended"]},
                "phone": {"type": "string"},
                "department": {"type": "string"},
                "job_title": {"type": "string"},
                "bio": {"type": "string"},
                "location": {"type": "string"},
                "website": {"type": "string"},
                "email_notifications": {"type": "boolean"}
            }
        },
        "BulkRequest": {
            "type": "object",
            "required": ["operation", "ids"],
            "properties": {
                "operation": {"type": "string", "enum": ["activate", "deactivate", "change_role", "delete", "password_reset"]},
                "ids": {"type": "array", "items": {"type": "string"}},
                "role": {"type": "string", "enum": ["user", "admin", "moderator"]}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["kind", "format"],
            "properties": {
                "kind": {"type": "string", "enum": ["accounts", "audit"]},
                "format": {"type": "string", "enum": ["csv", "pdf", "json"]},
                "account_query": {"type": "object"},
                "audit_filter": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
