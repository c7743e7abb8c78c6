package agreements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/db"
)

var (
	// ErrNotFound covers both a missing agreement and one that is no
	// longer active; callers cannot tell the two apart on purpose.
	ErrNotFound = errors.New("agreement not found")
	// ErrTooLate means the dispute window measured from creation has
	// closed.
	ErrTooLate = errors.New("dispute window closed")
)

type store interface {
	InsertAgreement(ctx context.Context, agreement *db.Agreement) error
	GetAgreement(ctx context.Context, id string) (*db.Agreement, error)
	GetActiveAgreements(ctx context.Context, chatID int64) ([]db.Agreement, error)
	UpdateAgreementStatus(ctx context.Context, id, status string) error
	UpdateAgreementText(ctx context.Context, id, text string) error
}

// Manager owns all agreement status transitions. Agreements enter the
// system only through the adjudicator's verdicts; once terminal they
// never move again.
type Manager struct {
	store         store
	disputeWindow time.Duration
	now           func() time.Time
	logger        *log.Entry
}

func NewManager(store store, disputeWindow time.Duration) *Manager {
	return &Manager{
		store:         store,
		disputeWindow: disputeWindow,
		now:           time.Now,
		logger:        log.WithField("context", "agreements"),
	}
}

// Create inserts an active agreement. The creation time is assigned
// here; timestamps suggested from outside are ignored so nobody can
// backdate a commitment into an already closed dispute window.
func (m *Manager) Create(ctx context.Context, chatID int64, draft db.AgreementDraft) (*db.Agreement, error) {
	createdAt := m.now().UTC()
	agreement := &db.Agreement{
		ID:              uuid.New(),
		ChatID:          chatID,
		Text:            draft.Text,
		Users:           draft.Users,
		Type:            draft.Type,
		Status:          db.AgreementStatusActive,
		CreatedAt:       createdAt,
		DisputeDeadline: createdAt.Add(m.disputeWindow),
	}
	if err := m.store.InsertAgreement(ctx, agreement); err != nil {
		return nil, fmt.Errorf("insert agreement: %w", err)
	}
	return agreement, nil
}

func (m *Manager) Dispute(ctx context.Context, id string) error {
	agreement, err := m.activeByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.now().UTC().Before(agreement.DisputeDeadline) {
		return ErrTooLate
	}
	return m.store.UpdateAgreementStatus(ctx, id, db.AgreementStatusDisputed)
}

// Resolve moves an active agreement to fulfilled or broken. A missing
// or already terminal target is a no-op: the verdict that asked for it
// is stale, not wrong.
func (m *Manager) Resolve(ctx context.Context, id, status, reason string) error {
	if status != db.AgreementStatusFulfilled && status != db.AgreementStatusBroken {
		return fmt.Errorf("invalid resolution status %q", status)
	}
	agreement, err := m.activeByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		m.logger.WithField("agreement_id", id).WithField("reason", reason).
			Debug("resolve target missing or terminal, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	return m.store.UpdateAgreementStatus(ctx, agreement.ID, status)
}

// Amend rewrites the text of an active agreement in place; the status
// and the dispute clock do not change.
func (m *Manager) Amend(ctx context.Context, id, newText, reason string) error {
	agreement, err := m.activeByID(ctx, id)
	if err != nil {
		return err
	}
	m.logger.WithField("agreement_id", id).WithField("reason", reason).Debug("amending agreement")
	return m.store.UpdateAgreementText(ctx, agreement.ID, newText)
}

// ListActive is a fetch-time snapshot. Ordinals derived from it go
// stale the moment another agreement lands; callers referencing by
// position must re-fetch right before use.
func (m *Manager) ListActive(ctx context.Context, chatID int64) ([]db.Agreement, error) {
	return m.store.GetActiveAgreements(ctx, chatID)
}

func (m *Manager) activeByID(ctx context.Context, id string) (*db.Agreement, error) {
	agreement, err := m.store.GetAgreement(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agreement: %w", err)
	}
	if agreement.Status != db.AgreementStatusActive {
		return nil, ErrNotFound
	}
	return agreement, nil
}
