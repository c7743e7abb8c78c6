package analysis

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/snitchlab/snitchbot/internal/db"
)

type statKey struct {
	chatID int64
	userID int64
}

// fakeStore is an in-memory stand-in for the sqlite client, with
// switchable failures to exercise the degraded paths.
type fakeStore struct {
	stats      map[statKey]*db.UserStat
	results    map[string]*db.DailyResult
	locks      map[int64]time.Time
	events     []db.LogEvent
	chats      []db.Chat
	agreements []*db.Agreement

	failLockReads  bool
	failLockWrites bool
	failLogReads   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:   make(map[statKey]*db.UserStat),
		results: make(map[string]*db.DailyResult),
		locks:   make(map[int64]time.Time),
	}
}

var errStorage = errors.New("storage down")

func (f *fakeStore) GetUserStat(_ context.Context, chatID, userID int64) (*db.UserStat, error) {
	stat, ok := f.stats[statKey{chatID, userID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *stat
	return &copied, nil
}

func (f *fakeStore) GetUserStats(_ context.Context, chatID int64) ([]db.UserStat, error) {
	var stats []db.UserStat
	for key, stat := range f.stats {
		if key.chatID == chatID {
			stats = append(stats, *stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].UserID < stats[j].UserID })
	return stats, nil
}

func (f *fakeStore) UpsertUserStat(_ context.Context, stat *db.UserStat) error {
	copied := *stat
	f.stats[statKey{stat.ChatID, stat.UserID}] = &copied
	return nil
}

func (f *fakeStore) GetDailyResult(_ context.Context, chatID int64, dateKey string) (*db.DailyResult, error) {
	result, ok := f.results[dateKey]
	if !ok || result.ChatID != chatID {
		return nil, db.ErrNotFound
	}
	copied := *result
	return &copied, nil
}

func (f *fakeStore) GetTrailingResults(_ context.Context, chatID int64, limit int) ([]db.DailyResult, error) {
	var results []db.DailyResult
	for _, result := range f.results {
		if result.ChatID == chatID {
			results = append(results, *result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DateKey > results[j].DateKey })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeStore) PutDailyResult(_ context.Context, result *db.DailyResult) error {
	copied := *result
	f.results[result.DateKey] = &copied
	return nil
}

func (f *fakeStore) GetLock(_ context.Context, chatID int64) (*db.AnalysisLock, error) {
	if f.failLockReads {
		return nil, errStorage
	}
	acquiredAt, ok := f.locks[chatID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &db.AnalysisLock{ChatID: chatID, AcquiredAt: acquiredAt}, nil
}

func (f *fakeStore) PutLock(_ context.Context, chatID int64, acquiredAt time.Time) error {
	if f.failLockWrites {
		return errStorage
	}
	f.locks[chatID] = acquiredAt
	return nil
}

func (f *fakeStore) DeleteLock(_ context.Context, chatID int64) error {
	delete(f.locks, chatID)
	return nil
}

func (f *fakeStore) GetLogEvents(_ context.Context, chatID int64, start, end time.Time) ([]db.LogEvent, error) {
	if f.failLogReads {
		return nil, errStorage
	}
	var events []db.LogEvent
	for _, event := range f.events {
		if event.ChatID == chatID && !event.SentAt.Before(start) && event.SentAt.Before(end) {
			events = append(events, event)
		}
	}
	return events, nil
}

func (f *fakeStore) GetActiveAgreements(_ context.Context, chatID int64) ([]db.Agreement, error) {
	var active []db.Agreement
	for _, agreement := range f.agreements {
		if agreement.ChatID == chatID && agreement.Status == db.AgreementStatusActive {
			active = append(active, *agreement)
		}
	}
	return active, nil
}

func (f *fakeStore) GetActiveChats(_ context.Context) ([]db.Chat, error) {
	return f.chats, nil
}

func (f *fakeStore) InsertAgreement(_ context.Context, agreement *db.Agreement) error {
	copied := *agreement
	f.agreements = append(f.agreements, &copied)
	return nil
}

func (f *fakeStore) GetAgreement(_ context.Context, id string) (*db.Agreement, error) {
	for _, agreement := range f.agreements {
		if agreement.ID == id {
			copied := *agreement
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) UpdateAgreementStatus(_ context.Context, id, status string) error {
	for _, agreement := range f.agreements {
		if agreement.ID == id {
			agreement.Status = status
		}
	}
	return nil
}

func (f *fakeStore) UpdateAgreementText(_ context.Context, id, text string) error {
	for _, agreement := range f.agreements {
		if agreement.ID == id {
			agreement.Text = text
		}
	}
	return nil
}

func (f *fakeStore) points(chatID, userID int64) int64 {
	stat, ok := f.stats[statKey{chatID, userID}]
	if !ok {
		return 0
	}
	return stat.TotalPoints
}
