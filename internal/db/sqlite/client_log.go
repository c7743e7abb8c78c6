package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) InsertLogEvent(ctx context.Context, event *db.LogEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT OR REPLACE INTO chat_log (chat_id, message_id, user_id, username, text, sent_at, reply_to, reported)
		VALUES (:chat_id, :message_id, :user_id, :username, :text, :sent_at, :reply_to, :reported)
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, event))
}

// GetLogEvents returns events in [start, end) ordered by send time.
func (s *sqliteClient) GetLogEvents(ctx context.Context, chatID int64, start, end time.Time) ([]db.LogEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var events []db.LogEvent
	err := s.db.SelectContext(ctx, &events,
		`SELECT * FROM chat_log
		 WHERE chat_id = ? AND sent_at >= ? AND sent_at < ?
		 ORDER BY sent_at, message_id`,
		chatID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get log events: %w", err)
	}
	return events, nil
}

// GetRecentLogEvents returns the latest events in chronological order.
func (s *sqliteClient) GetRecentLogEvents(ctx context.Context, chatID int64, limit int) ([]db.LogEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var events []db.LogEvent
	err := s.db.SelectContext(ctx, &events,
		`SELECT * FROM (
			SELECT * FROM chat_log WHERE chat_id = ?
			ORDER BY sent_at DESC, message_id DESC LIMIT ?
		 ) ORDER BY sent_at, message_id`,
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent log events: %w", err)
	}
	return events, nil
}

func (s *sqliteClient) MarkReported(ctx context.Context, chatID, messageID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_log SET reported = 1 WHERE chat_id = ? AND message_id = ?`,
		chatID, messageID)
	return err
}
