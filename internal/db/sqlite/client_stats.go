package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/snitchlab/snitchbot/internal/db"
)

func (s *sqliteClient) GetUserStat(ctx context.Context, chatID, userID int64) (*db.UserStat, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stat := &db.UserStat{}
	err := s.db.GetContext(ctx, stat,
		`SELECT * FROM user_stats WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get user stat: %w", err)
	}
	return stat, nil
}

func (s *sqliteClient) GetUserStats(ctx context.Context, chatID int64) ([]db.UserStat, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var stats []db.UserStat
	err := s.db.SelectContext(ctx, &stats,
		`SELECT * FROM user_stats WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return stats, nil
}

func (s *sqliteClient) GetTopUserStats(ctx context.Context, chatID int64, limit int) ([]db.UserStat, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var stats []db.UserStat
	err := s.db.SelectContext(ctx, &stats,
		`SELECT * FROM user_stats WHERE chat_id = ? ORDER BY total_points DESC LIMIT ?`,
		chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("get top user stats: %w", err)
	}
	return stats, nil
}

func (s *sqliteClient) UpsertUserStat(ctx context.Context, stat *db.UserStat) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO user_stats (chat_id, user_id, username, total_points, violation_day_count,
			current_rank, season_id, last_active_at, last_gamble_date, false_report_count, achievements)
		VALUES (:chat_id, :user_id, :username, :total_points, :violation_day_count,
			:current_rank, :season_id, :last_active_at, :last_gamble_date, :false_report_count, :achievements)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		username = excluded.username,
		total_points = excluded.total_points,
		violation_day_count = excluded.violation_day_count,
		current_rank = excluded.current_rank,
		season_id = excluded.season_id,
		last_active_at = excluded.last_active_at,
		last_gamble_date = excluded.last_gamble_date,
		false_report_count = excluded.false_report_count,
		achievements = excluded.achievements;
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, stat))
}

func (s *sqliteClient) TouchLastActive(ctx context.Context, chatID, userID int64, username string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO user_stats (chat_id, user_id, username, last_active_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		username = excluded.username,
		last_active_at = excluded.last_active_at;
	`
	_, err := s.db.ExecContext(ctx, query, chatID, userID, username, at)
	return err
}
