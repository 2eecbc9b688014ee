package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
)

// Routes binds every handler to its path. Nil handlers are skipped.
type Routes struct {
	APIPrefix string
	Gate      *middleware.SessionGate

	Auth      *AuthHandler
	Accounts  *AccountHandler
	Bulk      *BulkHandler
	Pending   *PendingHandler
	Audit     *AuditHandler
	Dashboard *DashboardHandler
	Analytics *AnalyticsHandler
	Portal    *PortalHandler
	Setup     *SetupHandler
	Exports   *ExportHandler
	Metrics   *MetricsHandler
	Pages     *PageHandler
}

// Register mounts the JSON API, the pages and the probes on r.
func (rt Routes) Register(r *gin.Engine) {
	if rt.Metrics != nil {
		r.GET("/health", rt.Metrics.Health)
		r.GET("/ready", rt.Metrics.Ready)
		r.GET("/metrics", rt.Metrics.Prometheus)
	}

	prefix := rt.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	rt.registerAPI(api)

	if rt.Pages != nil {
		rt.registerPages(r)
	}
}

func (rt Routes) registerAPI(api *gin.RouterGroup) {
	requireSession := rt.Gate.RequireSession()
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.Roles...)

	auth := api.Group("/auth")
	if rt.Auth != nil {
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/portal/login", rt.Auth.PortalLogin)
		auth.POST("/password/forgot", rt.Auth.ForgotPassword)
		auth.POST("/password/reset", rt.Auth.ResetPassword)
		auth.POST("/logout", requireSession, rt.Auth.Logout)
		auth.GET("/session", requireSession, rt.Auth.Me)
	}
	if rt.Portal != nil {
		auth.POST("/signup", rt.Portal.SignUp)

		me := api.Group("/me", requireSession, anyRole)
		me.GET("", rt.Portal.Profile)
		me.PATCH("", rt.Portal.UpdateProfile)
		me.PUT("/password", rt.Portal.ChangePassword)
		me.GET("/preferences", rt.Portal.Preferences)
		me.PUT("/preferences", rt.Portal.SavePreferences)
		me.GET("/export", rt.Portal.ExportOwnData)
		me.POST("/2fa/setup", rt.Portal.SetupTOTP)
		me.POST("/2fa/enable", rt.Portal.EnableTOTP)
		me.POST("/2fa/disable", rt.Portal.DisableTOTP)
	}

	admin := api.Group("", requireSession, adminOnly)
	if rt.Accounts != nil {
		accounts := admin.Group("/accounts")
		accounts.GET("", rt.Accounts.List)
		accounts.POST("", rt.Accounts.Create)
		accounts.GET("/stats", rt.Accounts.Stats)
		accounts.GET("/:id", rt.Accounts.Get)
		accounts.PATCH("/:id", rt.Accounts.Update)
		accounts.DELETE("/:id", rt.Accounts.Delete)
		accounts.POST("/:id/password-reset", rt.Accounts.SendReset)
		accounts.PUT("/:id/password", rt.Accounts.SetPassword)
		if rt.Bulk != nil {
			accounts.POST("/bulk", rt.Bulk.Dispatch)
		}
		if rt.Pending != nil {
			accounts.POST("/:id/actions/:kind", rt.Pending.Stage)
		}
		if rt.Audit != nil {
			accounts.GET("/:id/activity", rt.Audit.ForAccount)
		}
	}
	if rt.Pending != nil {
		admin.GET("/pending", rt.Pending.Current)
		admin.DELETE("/pending", rt.Pending.Cancel)
		admin.POST("/pending/confirm", rt.Pending.Confirm)
	}
	if rt.Audit != nil {
		admin.GET("/audit", rt.Audit.List)
		admin.POST("/audit/clean", rt.Audit.Clean)
	}
	if rt.Dashboard != nil {
		admin.GET("/dashboard", rt.Dashboard.Dashboard)
	}
	if rt.Analytics != nil {
		admin.GET("/analytics", rt.Analytics.Overview)
	}
	if rt.Setup != nil {
		admin.GET("/setup/status", rt.Setup.Status)
		admin.POST("/setup/bootstrap", rt.Setup.Bootstrap)
		admin.POST("/setup/seed", rt.Setup.SeedSamples)
	}
	if rt.Exports != nil {
		// The signed token is the credential for downloads.
		api.GET("/exports/download/:token", rt.Exports.Download)
		admin.POST("/exports", rt.Exports.Create)
		admin.GET("/exports/:id", rt.Exports.Status)
	}
}

func (rt Routes) registerPages(r *gin.Engine) {
	p := rt.Pages
	r.GET("/login", p.LoginForm)
	r.POST("/login", p.Login)
	r.GET("/logout", p.Logout)
	r.POST("/logout", p.Logout)
	r.POST("/signup", p.SignUp)
	r.POST("/password/forgot", p.ForgotPassword)
	r.GET("/password/reset", p.ResetForm)
	r.POST("/password/reset", p.ResetPassword)

	signedIn := r.Group("", rt.Gate.RequirePageSession("/login"))
	signedIn.GET("/me", p.Me)
	signedIn.POST("/me/profile", p.UpdateMe)
	signedIn.POST("/me/preferences", p.SavePreferences)
	signedIn.POST("/me/password", p.ChangePassword)
	signedIn.POST("/me/2fa/setup", p.SetupTOTP)
	signedIn.POST("/me/2fa/enable", p.EnableTOTP)
	signedIn.POST("/me/2fa/disable", p.DisableTOTP)
	signedIn.GET("/me/export", p.ExportMe)

	admin := signedIn.Group("", p.AdminOnly())
	admin.GET("/", p.Home)
	admin.GET("/users", p.Users)
	admin.GET("/users/new", p.NewUserForm)
	admin.POST("/users/new", p.CreateUser)
	admin.POST("/users/bulk", p.Bulk)
	admin.POST("/users/export", p.ExportUsers)
	admin.POST("/users/pending/confirm", p.ConfirmPending)
	admin.POST("/users/pending/cancel", p.CancelPending)
	admin.GET("/users/:id/edit", p.EditUserForm)
	admin.POST("/users/:id/edit", p.EditUser)
	admin.POST("/users/:id/actions/:kind", p.StageAction)
	admin.GET("/audit", p.Audit)
	admin.GET("/analytics", p.Analytics)
	admin.GET("/settings", p.Settings)
	admin.POST("/settings/bootstrap", p.RunBootstrap)
	admin.POST("/settings/seed", p.SeedSamples)
	admin.POST("/settings/clean-audit", p.CleanAudit)
	admin.POST("/settings/export", p.QueueExport)
}
