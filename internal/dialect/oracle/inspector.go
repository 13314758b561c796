package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderjulianmartinez/recon-watch/internal/recon"
)

// Inspector discovers reconciliation candidates from the source-engine
// catalog: every table in an owner schema with a primary key constraint.
type Inspector struct {
	db      *sql.DB
	timeout time.Duration
}

func NewInspector(db *sql.DB, timeout time.Duration) *Inspector {
	return &Inspector{db: db, timeout: timeout}
}

// FetchTableSpecs builds a TableSpec per (table, pk column) pair found under
// owner. Target names are the lower-cased source names under targetSchema,
// the conventional ora2pg mapping. Composite primary keys yield one spec per
// key column; callers that need composite handling must supply specs
// explicitly.
func (i *Inspector) FetchTableSpecs(ctx context.Context, owner, targetSchema string, defaultChunks int) ([]recon.TableSpec, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := i.db.QueryContext(ctx, Dialect{}.TableSpecsQuery(), strings.ToUpper(owner))
	if err != nil {
		return nil, fmt.Errorf("fetch table specs for %s: %w", owner, err)
	}
	defer rows.Close()

	var specs []recon.TableSpec
	for rows.Next() {
		var schema, table, pk string
		if err := rows.Scan(&schema, &table, &pk); err != nil {
			return nil, fmt.Errorf("scan table specs for %s: %w", owner, err)
		}
		specs = append(specs, recon.TableSpec{
			SourceSchema: schema,
			SourceTable:  table,
			TargetSchema: targetSchema,
			TargetTable:  strings.ToLower(table),
			PK:           pk,
			TargetPK:     strings.ToLower(pk),
			Chunks:       defaultChunks,
		})
	}
	return specs, rows.Err()
}
