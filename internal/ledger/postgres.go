package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// Postgres implements Ledger on top of a credit_balances row plus an
// append-only credit_entries audit table. Balance movement and audit entry
// land in a single statement, so a debit that would drive the balance
// negative updates nothing and scans no row.
type Postgres struct {
	sql    infra.SQLExecutor
	userID string
}

// NewPostgres creates a ledger for the given account.
func NewPostgres(sql infra.SQLExecutor, userID string) *Postgres {
	return &Postgres{sql: sql, userID: userID}
}

// Ensure seeds the balance row for a fresh account. Existing rows are left
// untouched.
func (p *Postgres) Ensure(ctx context.Context, initial int64) error {
	if _, err := p.sql.Exec(ctx, sqlinline.QEnsureCreditBalance, p.userID, initial); err != nil {
		return fmt.Errorf("ledger: ensure balance: %w", err)
	}
	return nil
}

func (p *Postgres) Balance(ctx context.Context) (int64, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, p.userID)
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger: read balance: %w", err)
	}
	return balance, nil
}

func (p *Postgres) Debit(ctx context.Context, amount int64, reason, taskID string) error {
	if amount < 0 {
		return fmt.Errorf("ledger: negative debit %d", amount)
	}
	return p.apply(ctx, -amount, reason, taskID)
}

func (p *Postgres) Credit(ctx context.Context, amount int64, reason, taskID string) error {
	if amount < 0 {
		return fmt.Errorf("ledger: negative credit %d", amount)
	}
	return p.apply(ctx, amount, reason, taskID)
}

func (p *Postgres) apply(ctx context.Context, delta int64, reason, taskID string) error {
	row := p.sql.QueryRow(ctx, sqlinline.QApplyCreditDelta, p.userID, delta, taskID, reason)
	var after int64
	if err := row.Scan(&after); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInsufficientCredits
		}
		return fmt.Errorf("ledger: apply delta: %w", err)
	}
	return nil
}

var _ Ledger = (*Postgres)(nil)
