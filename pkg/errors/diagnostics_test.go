package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDiagnoseCollectsChainAndCode(t *testing.T) {
	root := stdErrors.New("disk full")
	err := fmt.Errorf("save order: %w", Wrap(CodeInternal, root, "persist"))

	d := Diagnose(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected internal code, got %q", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain links, got %d: %v", len(d.Chain), d.Chain)
	}
	if d.PG != nil {
		t.Fatalf("unexpected pg details %+v", d.PG)
	}

	quiet := d.Fields(false)
	if _, ok := quiet["error_chain"]; ok {
		t.Fatalf("chain should only be logged verbosely")
	}
}

func TestDiagnosePostgresDrivers(t *testing.T) {
	cases := map[string]error{
		"pgx": fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "discounts_code_key", TableName: "discounts"}),
		"pq":  fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "discounts_code_key", Table: "discounts"}),
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			fields := Diagnose(err).Fields(true)
			if fields["pg_code"] != "23505" {
				t.Fatalf("expected unique violation code, got %v", fields["pg_code"])
			}
			if fields["pg_constraint"] != "discounts_code_key" {
				t.Fatalf("unexpected constraint %v", fields["pg_constraint"])
			}
		})
	}
}

func TestDiagnoseNil(t *testing.T) {
	if d := Diagnose(nil); d.Message != "" || d.Chain != nil {
		t.Fatalf("expected zero diagnostics, got %+v", d)
	}
}
