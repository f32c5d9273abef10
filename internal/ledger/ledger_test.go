package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"studio/internal/domain"
)

func TestMemoryDebitAndCredit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100)

	if err := m.Debit(ctx, 30, ReasonDebitGeneration, "task-1"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if err := m.Credit(ctx, 10, ReasonRefundFailure, "task-1"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	balance, err := m.Balance(ctx)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 80 {
		t.Fatalf("expected balance 80, got %d", balance)
	}

	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Amount != -30 || entries[0].BalanceAfter != 70 {
		t.Fatalf("unexpected debit entry: %+v", entries[0])
	}
	if entries[1].Amount != 10 || entries[1].BalanceAfter != 80 {
		t.Fatalf("unexpected credit entry: %+v", entries[1])
	}
}

func TestMemoryInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(5)
	err := m.Debit(ctx, 10, ReasonDebitGeneration, "task-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	balance, _ := m.Balance(ctx)
	if balance != 5 {
		t.Fatalf("failed debit must not move the balance, got %d", balance)
	}
}

func TestMemorySerializesConcurrentMovements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Debit(ctx, 1, ReasonDebitGeneration, "t")
		}()
	}
	wg.Wait()

	balance, _ := m.Balance(ctx)
	if balance != 900 {
		t.Fatalf("expected 900 after 100 concurrent debits, got %d", balance)
	}
}

func TestMemoryRejectsNegativeAmounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	if err := m.Debit(ctx, -1, ReasonDebitGeneration, "t"); err == nil {
		t.Fatal("negative debit should error")
	}
	if err := m.Credit(ctx, -1, ReasonRefundFailure, "t"); err == nil {
		t.Fatal("negative credit should error")
	}
}
