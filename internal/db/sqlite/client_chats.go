package sqlite

import (
	"context"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) UpsertChat(ctx context.Context, chat *db.Chat) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO chats (id, title, active, language)
		VALUES (:id, :title, :active, :language)
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		active = excluded.active,
		language = excluded.language;
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, chat))
}

func (s *sqliteClient) GetActiveChats(ctx context.Context) ([]db.Chat, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var chats []db.Chat
	err := s.db.SelectContext(ctx, &chats, `SELECT * FROM chats WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("get active chats: %w", err)
	}
	return chats, nil
}
