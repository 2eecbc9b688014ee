package backend

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/pkg/config"
	"github.com/noah-isme/userflow-api/pkg/database"
)

// ConnectFunc opens the live database.
type ConnectFunc func(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error)

// Selection explains which variant was chosen and why.
type Selection struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

// Banner returns the warning shown on every page when running on demo data.
func (s Selection) Banner() string {
	if s.Mode != ModeDemo {
		return ""
	}
	if s.Reason == "" {
		return "Demo mode: changes are kept in memory only."
	}
	return "Demo mode: " + s.Reason + ". Changes are kept in memory only."
}

// Options tunes Open.
type Options struct {
	Connect  ConnectFunc
	HashCost int
}

// Open selects the backend variant once, at startup.
//
// demo forces Demo. live requires the service-role key and a reachable
// database. auto falls back to Demo when either is missing and reports why.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (Backend, Selection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Connect == nil {
		opts.Connect = database.NewPostgres
	}

	switch cfg.Backend.Mode {
	case config.BackendModeDemo:
		demo, err := newDemoFromConfig(cfg, opts.HashCost)
		return demo, Selection{Mode: ModeDemo, Reason: "forced by BACKEND_MODE"}, err
	case config.BackendModeLive:
		if cfg.Backend.ServiceRoleKey == "" {
			return nil, Selection{}, fmt.Errorf("backend mode live requires BACKEND_SERVICE_ROLE_KEY")
		}
		db, err := opts.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, Selection{}, fmt.Errorf("connect live backend: %w", err)
		}
		return NewLive(db), Selection{Mode: ModeLive}, nil
	}

	reason := ""
	if cfg.Backend.ServiceRoleKey == "" {
		reason = "service-role key not configured"
		if cfg.Backend.AnonKey != "" {
			logger.Info("anon key present without service-role key; admin operations need the service-role key")
		}
	} else {
		db, err := opts.Connect(ctx, cfg.Database)
		if err == nil {
			return NewLive(db), Selection{Mode: ModeLive}, nil
		}
		reason = "backend unreachable"
		logger.Warn("live backend connection failed", zap.Error(err))
	}

	logger.Warn("falling back to demo backend", zap.String("reason", reason))
	demo, err := newDemoFromConfig(cfg, opts.HashCost)
	return demo, Selection{Mode: ModeDemo, Reason: reason}, err
}

func newDemoFromConfig(cfg *config.Config, cost int) (*Demo, error) {
	return NewDemo(DemoSeed{
		AdminEmail:    cfg.Admin.DefaultEmail,
		AdminPassword: cfg.Admin.DefaultPassword,
		UserPassword:  cfg.Admin.DemoUserPassword,
		HashCost:      cost,
	})
}
