package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type (
	// UserStat is the cumulative game record of one chat member.
	// total_points never goes negative; every mutation floors at zero.
	UserStat struct {
		ChatID            int64      `db:"chat_id"`
		UserID            int64      `db:"user_id"`
		Username          string     `db:"username"`
		TotalPoints       int64      `db:"total_points"`
		ViolationDayCount int64      `db:"violation_day_count"`
		CurrentRank       string     `db:"current_rank"`
		SeasonID          string     `db:"season_id"`
		LastActiveAt      *time.Time `db:"last_active_at"`
		LastGambleDate    string     `db:"last_gamble_date"`
		FalseReportCount  int64      `db:"false_report_count"`
		Achievements      StringList `db:"achievements"`
	}

	// DailyResult is the sole record of what was attributed on a given
	// day. Replacing it is how a day's scoring gets corrected.
	DailyResult struct {
		ChatID  int64         `db:"chat_id"`
		DateKey string        `db:"date_key"`
		Payload ResultPayload `db:"payload"`
	}

	// ResultPayload is the adjudicator verdict as persisted.
	ResultPayload struct {
		Offenders          []Offender            `json:"offenders"`
		NewAgreements      []AgreementDraft      `json:"new_agreements,omitempty"`
		ResolvedAgreements []AgreementResolution `json:"resolved_agreements,omitempty"`
		UpdatedAgreements  []AgreementAmendment  `json:"updated_agreements,omitempty"`
	}

	// Offender lives only inside a DailyResult payload; it is folded
	// into UserStat rows by the reconciler.
	Offender struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
		Category string `json:"category"`
		Points   int64  `json:"points"`
		Reason   string `json:"reason"`
		Quote    string `json:"quote,omitempty"`
	}

	AgreementDraft struct {
		Text  string  `json:"text"`
		Users []int64 `json:"users"`
		Type  string  `json:"type"`
	}

	AgreementResolution struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Reason string `json:"reason"`
	}

	AgreementAmendment struct {
		ID      string `json:"id"`
		NewText string `json:"new_text"`
		Reason  string `json:"reason"`
	}

	Agreement struct {
		ID              string    `db:"id"`
		ChatID          int64     `db:"chat_id"`
		Text            string    `db:"text"`
		Users           Int64List `db:"users"`
		Type            string    `db:"type"`
		Status          string    `db:"status"`
		CreatedAt       time.Time `db:"created_at"`
		DisputeDeadline time.Time `db:"dispute_deadline"`
	}

	// AnalysisLock is the ephemeral per-chat exclusion record. A row
	// older than the configured TTL is treated as absent.
	AnalysisLock struct {
		ChatID     int64     `db:"chat_id"`
		AcquiredAt time.Time `db:"acquired_at"`
	}

	// LogEvent is one ingested chat message.
	LogEvent struct {
		ChatID    int64     `db:"chat_id"`
		MessageID int64     `db:"message_id"`
		UserID    int64     `db:"user_id"`
		Username  string    `db:"username"`
		Text      string    `db:"text"`
		SentAt    time.Time `db:"sent_at"`
		ReplyTo   *int64    `db:"reply_to"`
		Reported  bool      `db:"reported"`
	}

	Chat struct {
		ID       int64  `db:"id"`
		Title    string `db:"title"`
		Active   bool   `db:"active"`
		Language string `db:"language"`
	}

	StringList []string
	Int64List  []int64
)

const (
	AgreementStatusActive    = "active"
	AgreementStatusDisputed  = "disputed"
	AgreementStatusFulfilled = "fulfilled"
	AgreementStatusBroken    = "broken"
)

// ResetForSeason rolls a stale stat row into the given season, wiping
// everything season-scoped. The gamble date stays: it gates a calendar
// day, not a season.
func (s *UserStat) ResetForSeason(seasonID string) {
	s.SeasonID = seasonID
	s.TotalPoints = 0
	s.ViolationDayCount = 0
	s.FalseReportCount = 0
}

// IsTerminal reports whether an agreement status allows no further
// transitions.
func IsTerminal(status string) bool {
	switch status {
	case AgreementStatusFulfilled, AgreementStatusBroken, AgreementStatusDisputed:
		return true
	}
	return false
}

func (p ResultPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ResultPayload) Scan(v interface{}) error {
	return scanJSON(v, p)
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(v interface{}) error {
	return scanJSON(v, s)
}

func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		l = Int64List{}
	}
	return json.Marshal(l)
}

func (l *Int64List) Scan(v interface{}) error {
	return scanJSON(v, l)
}

func scanJSON(v, target interface{}) error {
	if v == nil {
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), target)
	case []byte:
		return json.Unmarshal(data, target)
	default:
		return fmt.Errorf("cannot scan type %T as JSON", v)
	}
}
