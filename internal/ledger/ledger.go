// Package ledger holds the user's spendable credit balance. The orchestrator
// issues debit and credit intents and never assumes a post-condition balance;
// the ledger serializes concurrent calls itself.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
)

// Entry reason codes.
const (
	ReasonDebitGeneration = "debit_generation"
	ReasonRefundFailure   = "refund_failure"
	ReasonTopUp           = "top_up"
)

// Entry is one ledger movement, kept for audit.
type Entry struct {
	TaskID       string
	Reason       string
	Amount       int64
	BalanceAfter int64
	CreatedAt    time.Time
}

// Ledger exposes atomic debit and credit operations over a single balance.
type Ledger interface {
	Balance(ctx context.Context) (int64, error)
	Debit(ctx context.Context, amount int64, reason, taskID string) error
	Credit(ctx context.Context, amount int64, reason, taskID string) error
}

// Memory is an in-process ledger used by tests and no-database deployments.
type Memory struct {
	mu      sync.Mutex
	balance int64
	entries []Entry
}

// NewMemory creates a ledger seeded with the given balance.
func NewMemory(balance int64) *Memory {
	return &Memory{balance: balance}
}

func (m *Memory) Balance(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *Memory) Debit(ctx context.Context, amount int64, reason, taskID string) error {
	if amount < 0 {
		return fmt.Errorf("ledger: negative debit %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance < amount {
		return domain.ErrInsufficientCredits
	}
	m.balance -= amount
	m.entries = append(m.entries, Entry{
		TaskID:       taskID,
		Reason:       reason,
		Amount:       -amount,
		BalanceAfter: m.balance,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *Memory) Credit(ctx context.Context, amount int64, reason, taskID string) error {
	if amount < 0 {
		return fmt.Errorf("ledger: negative credit %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance += amount
	m.entries = append(m.entries, Entry{
		TaskID:       taskID,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: m.balance,
		CreatedAt:    time.Now(),
	})
	return nil
}

// Entries returns a copy of the movement log.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

var _ Ledger = (*Memory)(nil)
