package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaRepository runs raw statements for the bootstrap script.
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository creates a new instance of SchemaRepository.
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// Exec runs a single statement.
func (r *SchemaRepository) Exec(ctx context.Context, statement string) error {
	if _, err := r.db.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

// TableExists reports whether a relation with the qualified name exists.
func (r *SchemaRepository) TableExists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT to_regclass($1) IS NOT NULL`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}
