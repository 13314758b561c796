// Package fkcheck runs foreign-key orphan checks against the target engine:
// for every FK in a schema it counts child rows with no matching parent.
package fkcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
)

// Result is one foreign key's orphan count.
type Result struct {
	FKName     string
	OrphanRows int64
}

// Run executes metaSQL (a catalog query yielding one executable orphan-count
// statement per FK, bound to schema) and then each generated statement.
// Generated statements must return (fk_name, orphan_rows).
func Run(ctx context.Context, db recon.Querier, metaSQL, schema string, timeout time.Duration) ([]Result, error) {
	stmts, err := generatedStatements(ctx, db, metaSQL, schema, timeout)
	if err != nil {
		return nil, err
	}

	var out []Result
	for _, stmt := range stmts {
		res, err := runOne(ctx, db, stmt, timeout)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func generatedStatements(ctx context.Context, db recon.Querier, metaSQL, schema string, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, metaSQL, schema)
	if err != nil {
		return nil, fmt.Errorf("generate fk checks for %s: %w", schema, err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan fk check statement: %w", err)
		}
		stmts = append(stmts, s)
	}
	return stmts, rows.Err()
}

func runOne(ctx context.Context, db recon.Querier, stmt string, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var r Result
	if err := db.QueryRowContext(ctx, stmt).Scan(&r.FKName, &r.OrphanRows); err != nil {
		return r, fmt.Errorf("fk orphan check: %w", err)
	}
	return r, nil
}
