package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGError is the driver-neutral view of a postgres failure.
type PGError struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// PG extracts postgres diagnostics from either the pgx or the lib/pq driver.
func PG(err error) (PGError, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return PGError{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return PGError{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGError{}, false
}

// LogFields flattens err into structured log fields: the typed code, the
// unwrap chain and any postgres diagnostics. Empty values are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
		if dm, ok := typed.Details().(map[string]any); ok {
			if step, ok := dm["step"]; ok {
				fields["step"] = step
			}
		}
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	if pg, ok := PG(err); ok {
		for key, value := range map[string]string{
			"pg_code":       pg.Code,
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_detail":     pg.Detail,
			"pg_message":    pg.Message,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
