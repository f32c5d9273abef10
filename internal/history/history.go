// Package history records terminal task outcomes so the session list can be
// resynchronized later. Recording is best-effort: a failed write never
// affects task state.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// Sink accepts terminal task snapshots.
type Sink interface {
	Record(ctx context.Context, task domain.GenerationTask) error
}

// Noop discards everything; used when no database is configured.
type Noop struct{}

func (Noop) Record(ctx context.Context, task domain.GenerationTask) error { return nil }

// Postgres persists task outcomes into the generation_history table.
type Postgres struct {
	sql infra.SQLExecutor
}

func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

func (p *Postgres) Record(ctx context.Context, task domain.GenerationTask) error {
	cfg, err := json.Marshal(task.Config)
	if err != nil {
		return fmt.Errorf("history: encode config: %w", err)
	}
	_, err = p.sql.Exec(ctx, sqlinline.QUpsertGenerationHistory,
		task.ID,
		task.JobID,
		task.Prompt,
		string(task.Status),
		task.URL,
		string(task.Channel),
		task.Cost,
		task.Refunded,
		cfg,
	)
	if err != nil {
		return fmt.Errorf("history: record task %s: %w", task.ID, err)
	}
	return nil
}

var (
	_ Sink = Noop{}
	_ Sink = (*Postgres)(nil)
)
