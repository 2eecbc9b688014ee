// Package web holds the server-rendered dashboard templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/noah-isme/userflow-api/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every embedded page with the shared helpers.
func Templates() (*template.Template, error) {
	tmpl, err := template.New("pages").Funcs(Funcs()).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Funcs returns the helpers available to templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"lastLogin": func(t *time.Time) string {
			if t == nil {
				return "Never"
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"selected": func(current, option string) template.HTMLAttr {
			if strings.EqualFold(current, option) {
				return "selected"
			}
			return ""
		},
		"roles":    func() []models.AccountRole { return models.Roles },
		"statuses": func() []models.AccountStatus { return models.Statuses },
		"periods": func() []models.AuditPeriod {
			return []models.AuditPeriod{models.PeriodToday, models.Period7Days, models.Period30Days, models.Period90Days, models.PeriodAll}
		},
		"percent": func(part, total int) int {
			if total == 0 {
				return 0
			}
			return part * 100 / total
		},
	}
}
