package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) GetDailyResult(ctx context.Context, chatID int64, dateKey string) (*db.DailyResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := &db.DailyResult{}
	err := s.db.GetContext(ctx, result,
		`SELECT chat_id, date_key, payload FROM daily_results WHERE chat_id = ? AND date_key = ?`,
		chatID, dateKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get daily result: %w", err)
	}
	return result, nil
}

// GetTrailingResults returns the most recent results first.
func (s *sqliteClient) GetTrailingResults(ctx context.Context, chatID int64, limit int) ([]db.DailyResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []db.DailyResult
	err := s.db.SelectContext(ctx, &results,
		`SELECT chat_id, date_key, payload FROM daily_results
		 WHERE chat_id = ? ORDER BY date_key DESC LIMIT ?`,
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("get trailing results: %w", err)
	}
	return results, nil
}

func (s *sqliteClient) PutDailyResult(ctx context.Context, result *db.DailyResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO daily_results (chat_id, date_key, payload)
		VALUES (:chat_id, :date_key, :payload)
		ON CONFLICT(chat_id, date_key) DO UPDATE SET
		payload = excluded.payload;
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, result))
}
