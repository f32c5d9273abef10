package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// SQLSource reads provider keys from the integration_tokens table, which the
// providerkey command maintains.
type SQLSource struct {
	sql infra.SQLExecutor
}

func NewSQLSource(sql infra.SQLExecutor) *SQLSource {
	return &SQLSource{sql: sql}
}

func (s *SQLSource) Fetch(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Store stores or rotates a provider key.
func (s *SQLSource) Store(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s key is required", provider)
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token)
	return err
}

var _ Source = (*SQLSource)(nil)
