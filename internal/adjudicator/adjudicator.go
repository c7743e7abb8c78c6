package adjudicator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/adapters"
	"github.com/snitchlab/snitchbot/internal/adapters/llm"
	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/observability"
)

// Adjudicator is the semantic judge boundary. Its decision logic is
// opaque; this client only owns the wire contract: transcript in,
// verdict out, "none" meaning apply nothing.
type Adjudicator interface {
	Classify(ctx context.Context, events []db.LogEvent, active []db.Agreement, dateLabel string) (*db.ResultPayload, error)
	JudgeReport(ctx context.Context, contextEvents []db.LogEvent, reported db.LogEvent) (*ReportVerdict, error)
}

// ReportVerdict is the judge's answer to a /report. A rejected report
// counts against the reporter.
type ReportVerdict struct {
	Accepted bool   `json:"accepted"`
	Category string `json:"category"`
	Points   int64  `json:"points"`
	Reason   string `json:"reason"`
}

type Client struct {
	llm    adapters.LLM
	logger *log.Entry
}

func New(model adapters.LLM) *Client {
	return &Client{
		llm:    model,
		logger: log.WithField("context", "adjudicator"),
	}
}

// Classify returns (nil, nil) when the judge declines to flag anything.
// Callers must treat that as "apply nothing", never as a failure.
func (c *Client) Classify(ctx context.Context, events []db.LogEvent, active []db.Agreement, dateLabel string) (*db.ResultPayload, error) {
	prompt := fmt.Sprintf("Вот лог чата за %s:\n%s\n\n%s\n\nВынеси вердикт согласно системной инструкции. Верни ТОЛЬКО JSON или слово none.",
		dateLabel, formatTranscript(events), formatAgreements(active))

	started := time.Now()
	resp, err := c.llm.ChatCompletion(ctx, []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		observability.ObserveAdjudicator("error", time.Since(started))
		return nil, fmt.Errorf("classify request: %w", err)
	}
	observability.ObserveAdjudicator("ok", time.Since(started))

	raw := responseText(resp)
	if isNone(raw) {
		return nil, nil
	}

	payload := &db.ResultPayload{}
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		c.logger.WithError(err).WithField("raw", raw).Error("cant decode verdict")
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return payload, nil
}

func (c *Client) JudgeReport(ctx context.Context, contextEvents []db.LogEvent, reported db.LogEvent) (*ReportVerdict, error) {
	prompt := fmt.Sprintf("Контекст:\n%s\n\nСообщение под доносом:\n[%s] %s (ID: %d): %s\n\nВерни ТОЛЬКО JSON.",
		formatTranscript(contextEvents),
		reported.SentAt.Format("15:04"), reported.Username, reported.UserID, reported.Text)

	started := time.Now()
	resp, err := c.llm.ChatCompletion(ctx, []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: reportPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		observability.ObserveAdjudicator("error", time.Since(started))
		return nil, fmt.Errorf("judge report request: %w", err)
	}
	observability.ObserveAdjudicator("ok", time.Since(started))

	verdict := &ReportVerdict{}
	if err := json.Unmarshal([]byte(responseText(resp)), verdict); err != nil {
		return nil, fmt.Errorf("decode report verdict: %w", err)
	}
	return verdict, nil
}

func responseText(resp llm.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func isNone(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "none", "null":
		return true
	}
	return false
}
