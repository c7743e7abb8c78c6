package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) GetLock(ctx context.Context, chatID int64) (*db.AnalysisLock, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	lock := &db.AnalysisLock{}
	err := s.db.GetContext(ctx, lock,
		`SELECT chat_id, acquired_at FROM analysis_locks WHERE chat_id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}
	return lock, nil
}

func (s *sqliteClient) PutLock(ctx context.Context, chatID int64, acquiredAt time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO analysis_locks (chat_id, acquired_at)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		acquired_at = excluded.acquired_at;
	`
	_, err := s.db.ExecContext(ctx, query, chatID, acquiredAt)
	return err
}

func (s *sqliteClient) DeleteLock(ctx context.Context, chatID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM analysis_locks WHERE chat_id = ?`, chatID)
	return err
}
