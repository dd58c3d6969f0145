package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATEs the pricing writes can hit.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// PostgresFault holds the server-side fields of a postgres error, whichever
// driver produced it.
type PostgresFault struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Transient reports whether retrying the whole transaction may succeed.
func (p *PostgresFault) Transient() bool {
	return p != nil && (p.Code == pgSerializationFailure || p.Code == pgDeadlockDetected)
}

// Diagnostics is the log-side view of an error.
type Diagnostics struct {
	Message  string
	Code     Code
	Chain    []string
	Postgres *PostgresFault

	// Pricing context lifted from the typed error's details.
	HistoryID string
	Target    string
	Step      string
}

// Diagnose walks err and collects everything worth logging about it.
func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	d := Diagnostics{Message: err.Error()}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		if details, ok := typed.Details().(map[string]any); ok {
			d.HistoryID = detailString(details, "history_id")
			d.Target = detailString(details, "target")
			d.Step = detailString(details, "step")
		}
	}
	d.Postgres = postgresFault(err)
	return d
}

// Fields flattens the diagnostics into logger fields, leaving out empty ones.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{
		"error_message": d.Message,
		"error_chain":   d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	for key, value := range map[string]string{"history_id": d.HistoryID, "target": d.Target, "step": d.Step} {
		if value != "" {
			fields[key] = value
		}
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		fields["pg_message"] = pg.Message
		fields["pg_transient"] = pg.Transient()
		if pg.Constraint != "" {
			fields["pg_constraint"] = pg.Constraint
		}
		if pg.Table != "" {
			fields["pg_table"] = pg.Table
		}
		if pg.Detail != "" {
			fields["pg_detail"] = pg.Detail
		}
	}
	return fields
}

// IsConstraintViolation reports whether err is a unique or check violation,
// the two ways a bad price write is refused by the schema.
func IsConstraintViolation(err error) bool {
	pg := postgresFault(err)
	return pg != nil && (pg.Code == pgUniqueViolation || pg.Code == pgCheckViolation)
}

func postgresFault(err error) *PostgresFault {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresFault{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresFault{
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

func detailString(details map[string]any, key string) string {
	value, ok := details[key]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
