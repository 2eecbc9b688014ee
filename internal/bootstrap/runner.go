package bootstrap

import (
	"context"

	"go.uber.org/zap"
)

// Executor runs a single raw SQL statement.
type Executor interface {
	ExecSQL(ctx context.Context, statement string) error
}

// Report is the aggregate outcome of a bootstrap run.
type Report struct {
	Total     int  `json:"total"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	OK        bool `json:"ok"`
}

// Runner executes the bootstrap script statement by statement.
type Runner struct {
	exec   Executor
	script string
	logger *zap.Logger
}

// NewRunner builds a runner for the embedded schema.
func NewRunner(exec Executor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{exec: exec, script: schemaSQL, logger: logger}
}

// WithScript swaps the script, used for ad-hoc runs.
func (r *Runner) WithScript(script string) *Runner {
	clone := *r
	clone.script = script
	return &clone
}

// Run executes every statement independently. A failing statement is logged
// and counted; it never stops the run.
func (r *Runner) Run(ctx context.Context) Report {
	statements := Statements(r.script)
	report := Report{Total: len(statements)}
	for i, stmt := range statements {
		if err := r.exec.ExecSQL(ctx, stmt); err != nil {
			report.Failed++
			r.logger.Warn("bootstrap statement failed", zap.Int("statement", i+1), zap.Error(err))
			continue
		}
		report.Succeeded++
	}
	report.OK = report.Succeeded > 0
	r.logger.Info("bootstrap completed",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("total", report.Total),
	)
	return report
}
