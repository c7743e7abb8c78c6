package db

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Client is the full storage surface. Components depend on narrow
// subsets of it declared on the consumer side; the sqlite client
// satisfies all of them.
type Client interface {
	Close() error

	GetUserStat(ctx context.Context, chatID, userID int64) (*UserStat, error)
	GetUserStats(ctx context.Context, chatID int64) ([]UserStat, error)
	GetTopUserStats(ctx context.Context, chatID int64, limit int) ([]UserStat, error)
	UpsertUserStat(ctx context.Context, stat *UserStat) error
	TouchLastActive(ctx context.Context, chatID, userID int64, username string, at time.Time) error

	GetDailyResult(ctx context.Context, chatID int64, dateKey string) (*DailyResult, error)
	GetTrailingResults(ctx context.Context, chatID int64, limit int) ([]DailyResult, error)
	PutDailyResult(ctx context.Context, result *DailyResult) error

	InsertAgreement(ctx context.Context, agreement *Agreement) error
	GetAgreement(ctx context.Context, id string) (*Agreement, error)
	GetActiveAgreements(ctx context.Context, chatID int64) ([]Agreement, error)
	UpdateAgreementStatus(ctx context.Context, id, status string) error
	UpdateAgreementText(ctx context.Context, id, text string) error

	GetLock(ctx context.Context, chatID int64) (*AnalysisLock, error)
	PutLock(ctx context.Context, chatID int64, acquiredAt time.Time) error
	DeleteLock(ctx context.Context, chatID int64) error

	InsertLogEvent(ctx context.Context, event *LogEvent) error
	GetLogEvents(ctx context.Context, chatID int64, start, end time.Time) ([]LogEvent, error)
	GetRecentLogEvents(ctx context.Context, chatID int64, limit int) ([]LogEvent, error)
	MarkReported(ctx context.Context, chatID, messageID int64) error

	UpsertChat(ctx context.Context, chat *Chat) error
	GetActiveChats(ctx context.Context) ([]Chat, error)
}
