package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) InsertAgreement(ctx context.Context, agreement *db.Agreement) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO agreements (id, chat_id, text, users, type, status, created_at, dispute_deadline)
		VALUES (:id, :chat_id, :text, :users, :type, :status, :created_at, :dispute_deadline)
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, agreement))
}

func (s *sqliteClient) GetAgreement(ctx context.Context, id string) (*db.Agreement, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	agreement := &db.Agreement{}
	err := s.db.GetContext(ctx, agreement, `SELECT * FROM agreements WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get agreement: %w", err)
	}
	return agreement, nil
}

// GetActiveAgreements returns a fetch-time snapshot ordered by creation
// time, so ordinal references resolve the same way for every caller.
func (s *sqliteClient) GetActiveAgreements(ctx context.Context, chatID int64) ([]db.Agreement, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var agreements []db.Agreement
	err := s.db.SelectContext(ctx, &agreements,
		`SELECT * FROM agreements WHERE chat_id = ? AND status = ? ORDER BY created_at`,
		chatID, db.AgreementStatusActive)
	if err != nil {
		return nil, fmt.Errorf("get active agreements: %w", err)
	}
	return agreements, nil
}

func (s *sqliteClient) UpdateAgreementStatus(ctx context.Context, id, status string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE agreements SET status = ? WHERE id = ?`, status, id)
	return err
}

func (s *sqliteClient) UpdateAgreementText(ctx context.Context, id, text string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE agreements SET text = ? WHERE id = ?`, text, id)
	return err
}
