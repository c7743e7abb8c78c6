package agreements

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/snitchlab/snitchbot/internal/db"
)

type fakeStore struct {
	agreements map[string]*db.Agreement
}

func newFakeStore() *fakeStore {
	return &fakeStore{agreements: make(map[string]*db.Agreement)}
}

func (f *fakeStore) InsertAgreement(_ context.Context, agreement *db.Agreement) error {
	copied := *agreement
	f.agreements[agreement.ID] = &copied
	return nil
}

func (f *fakeStore) GetAgreement(_ context.Context, id string) (*db.Agreement, error) {
	agreement, ok := f.agreements[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *agreement
	return &copied, nil
}

func (f *fakeStore) GetActiveAgreements(_ context.Context, chatID int64) ([]db.Agreement, error) {
	var active []db.Agreement
	for _, agreement := range f.agreements {
		if agreement.ChatID == chatID && agreement.Status == db.AgreementStatusActive {
			active = append(active, *agreement)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	return active, nil
}

func (f *fakeStore) UpdateAgreementStatus(_ context.Context, id, status string) error {
	f.agreements[id].Status = status
	return nil
}

func (f *fakeStore) UpdateAgreementText(_ context.Context, id, text string) error {
	f.agreements[id].Text = text
	return nil
}

func newTestManager(store *fakeStore, at time.Time) *Manager {
	m := NewManager(store, 24*time.Hour)
	m.now = func() time.Time { return at }
	return m
}

func TestCreateAssignsSystemTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	created := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	m := newTestManager(store, created)

	agreement, err := m.Create(ctx, 1, db.AgreementDraft{Text: "не опаздывать", Users: []int64{7}, Type: "promise"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if agreement.Status != db.AgreementStatusActive {
		t.Fatalf("expected active, got %s", agreement.Status)
	}
	if !agreement.CreatedAt.Equal(created) {
		t.Fatalf("expected system creation time %v, got %v", created, agreement.CreatedAt)
	}
	if !agreement.DisputeDeadline.Equal(created.Add(24 * time.Hour)) {
		t.Fatalf("wrong dispute deadline: %v", agreement.DisputeDeadline)
	}
	if agreement.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestDisputeWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	created := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"inside window", created.Add(23 * time.Hour), nil},
		{"one second before close", created.Add(24*time.Hour - time.Second), nil},
		{"exactly at close", created.Add(24 * time.Hour), ErrTooLate},
		{"after close", created.Add(25 * time.Hour), ErrTooLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			m := newTestManager(store, created)
			agreement, err := m.Create(ctx, 1, db.AgreementDraft{Text: "обещание"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			m.now = func() time.Time { return tt.at }
			err = m.Dispute(ctx, agreement.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil {
				if store.agreements[agreement.ID].Status != db.AgreementStatusDisputed {
					t.Fatal("agreement not disputed")
				}
			}
		})
	}
}

func TestDisputeNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	m := newTestManager(store, time.Now())

	if err := m.Dispute(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	agreement, _ := m.Create(ctx, 1, db.AgreementDraft{Text: "обещание"})
	store.agreements[agreement.ID].Status = db.AgreementStatusFulfilled
	if err := m.Dispute(ctx, agreement.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("terminal agreement should read as not found, got %v", err)
	}
}

func TestResolveTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	m := newTestManager(store, time.Now())

	agreement, _ := m.Create(ctx, 1, db.AgreementDraft{Text: "обещание"})
	if err := m.Resolve(ctx, agreement.ID, db.AgreementStatusFulfilled, "сделал"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.agreements[agreement.ID].Status != db.AgreementStatusFulfilled {
		t.Fatal("agreement not fulfilled")
	}

	// terminal target is a silent no-op
	if err := m.Resolve(ctx, agreement.ID, db.AgreementStatusBroken, "передумал"); err != nil {
		t.Fatalf("resolve terminal should be no-op, got %v", err)
	}
	if store.agreements[agreement.ID].Status != db.AgreementStatusFulfilled {
		t.Fatal("terminal status must not change")
	}

	if err := m.Resolve(ctx, "missing", db.AgreementStatusBroken, ""); err != nil {
		t.Fatalf("resolve missing should be no-op, got %v", err)
	}

	if err := m.Resolve(ctx, agreement.ID, "disputed", ""); err == nil {
		t.Fatal("resolve must reject non-terminal statuses")
	}
}

func TestAmendRewritesActiveText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	m := newTestManager(store, time.Now())

	agreement, _ := m.Create(ctx, 1, db.AgreementDraft{Text: "прийти к восьми"})
	if err := m.Amend(ctx, agreement.ID, "прийти к девяти", "перенесли"); err != nil {
		t.Fatalf("amend: %v", err)
	}
	got := store.agreements[agreement.ID]
	if got.Text != "прийти к девяти" {
		t.Fatalf("text not amended: %s", got.Text)
	}
	if got.Status != db.AgreementStatusActive {
		t.Fatalf("amend must not change status, got %s", got.Status)
	}

	got.Status = db.AgreementStatusBroken
	if err := m.Amend(ctx, agreement.ID, "ещё раз", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("amending terminal agreement should fail, got %v", err)
	}
}
