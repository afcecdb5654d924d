package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics flattens an error into log-friendly pieces. Postgres details
// are pulled from either driver so failures look the same in both modes.
type Diagnostics struct {
	Message string
	Code    Code
	Chain   []string
	PG      *PGDetails
}

type PGDetails struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

func Diagnose(err error) Diagnostics {
	var d Diagnostics
	if err == nil {
		return d
	}
	d.Message = err.Error()
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", cur, cur))
	}
	d.PG = pgDetails(err)
	return d
}

func pgDetails(err error) *PGDetails {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &PGDetails{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetails{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields renders the diagnostics as structured log fields. The chain and
// postgres details are only included when verbose is set.
func (d Diagnostics) Fields(verbose bool) map[string]any {
	out := map[string]any{
		"error":      d.Message,
		"error_code": d.Code,
	}
	if !verbose {
		return out
	}
	out["error_chain"] = d.Chain
	if d.PG != nil {
		out["pg_code"] = d.PG.Code
		out["pg_constraint"] = d.PG.Constraint
		out["pg_table"] = d.PG.Table
		out["pg_column"] = d.PG.Column
		out["pg_detail"] = d.PG.Detail
		out["pg_message"] = d.PG.Message
	}
	return out
}
