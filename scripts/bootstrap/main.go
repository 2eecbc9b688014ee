package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/bootstrap"
	"github.com/noah-isme/userflow-api/internal/service"
	"github.com/noah-isme/userflow-api/pkg/config"
	"github.com/noah-isme/userflow-api/pkg/logger"
)

// bootstrap prepares a live backend: it runs the schema script, creates the
// default admin and optionally seeds the sample accounts.
func main() {
	var (
		statusOnly  bool
		skipSchema  bool
		ensureAdmin bool
		seedSamples bool
		timeout     time.Duration
	)
	flag.BoolVar(&statusOnly, "status", false, "Only print table and admin status")
	flag.BoolVar(&skipSchema, "skip-schema", false, "Do not run the schema script")
	flag.BoolVar(&ensureAdmin, "ensure-admin", true, "Create the default admin when missing")
	flag.BoolVar(&seedSamples, "seed-samples", false, "Create the sample user accounts")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, selection, err := backend.Open(ctx, cfg, logr, backend.Options{HashCost: bcrypt.DefaultCost})
	if err != nil {
		logr.Fatal("failed to open backend", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck
	if selection.Mode == backend.ModeDemo && !statusOnly {
		logr.Warn("running against the demo backend; nothing will persist", zap.String("reason", selection.Reason))
	}

	metrics := service.NewMetricsService()
	recorder := service.NewAuditRecorder(store, metrics, logr)
	client := service.NewAccountClient(store, recorder, nil, nil, metrics, nil, logr, service.AccountClientConfig{HashCost: bcrypt.DefaultCost})
	setup := service.NewSetupService(store, bootstrap.NewRunner(store, logr), client, recorder, selection, service.SetupConfig{
		AdminEmail:     cfg.Admin.DefaultEmail,
		AdminPassword:  cfg.Admin.DefaultPassword,
		SamplePassword: cfg.Admin.DemoUserPassword,
	}, logr)

	out := map[string]interface{}{}
	failed := false

	if !statusOnly {
		if !skipSchema {
			report, err := setup.RunBootstrap(ctx, service.SystemActor)
			if err != nil {
				logr.Error("schema bootstrap failed", zap.Error(err))
				out["bootstrap_error"] = err.Error()
				failed = true
			} else {
				out["bootstrap"] = report
				failed = failed || !report.OK
			}
		}
		if ensureAdmin {
			created, err := setup.EnsureDefaultAdmin(ctx)
			if err != nil {
				logr.Error("default admin check failed", zap.Error(err))
				out["admin_error"] = err.Error()
				failed = true
			} else {
				out["admin_created"] = created
			}
		}
		if seedSamples {
			report, err := setup.SeedSampleUsers(ctx, service.SystemActor)
			if err != nil {
				logr.Error("sample seeding failed", zap.Error(err))
				out["seed_error"] = err.Error()
				failed = true
			} else {
				out["seed"] = report
				failed = failed || len(report.Failed) > 0
			}
		}
	}

	status, err := setup.Status(ctx)
	if err != nil {
		logr.Error("status check failed", zap.Error(err))
		failed = true
	} else {
		out["status"] = status
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
	}
	if failed {
		os.Exit(1)
	}
}
