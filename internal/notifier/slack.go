package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/biasbench/biasbench/internal/model"
)

const (
	maxPromptPreview   = 280
	maxResponsePreview = 200
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends audit summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each audit to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts one Block Kit message for rec. A 429 is retried once after
// the Retry-After delay.
func (s *SlackNotifier) Notify(ctx context.Context, rec model.AuditRecord) error {
	body, err := json.Marshal(buildPayload(rec))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", int(retryAfter.Seconds()))
		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "audit_id", rec.ID, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "audit_id", rec.ID)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample audit notification to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	rec := model.AuditRecord{
		ID:             0,
		Prompt:         "BiasBench test notification: is the integration working?",
		SelectedModels: []model.ModelKey{model.Gemini, model.Llama70B},
		Responses: model.NewResponseSet([]model.Response{
			{Key: model.Gemini, Text: "Yes, the webhook is reachable."},
			{Key: model.Llama70B, Text: "The integration appears to work."},
		}),
		Verdict: model.Verdict{
			Summary:           "Test message. Both models agree the integration works.",
			SubjectivityScore: 0,
			BiasTag:           model.BiasNeutral,
			AgreementRate:     model.AgreementHigh,
			Confidence:        100,
		},
		CreatedAt: time.Now(),
	}
	return n.Notify(ctx, rec)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

func buildPayload(rec model.AuditRecord) slackPayload {
	v := rec.Verdict

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("⚖️ Audit #%d: %s", rec.ID, v.BiasTag)},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Prompt:*\n" + truncate(rec.Prompt, maxPromptPreview)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Subjectivity:*\n%d/100", v.SubjectivityScore)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:*\n%d/100", v.Confidence)},
				{Type: "mrkdwn", Text: "*Agreement:*\n" + string(v.AgreementRate)},
				{Type: "mrkdwn", Text: "*Models:*\n" + joinKeys(rec.Responses.Keys())},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Summary:*\n" + v.Summary},
		},
	}

	if rec.Responses.Len() > 0 {
		var sb strings.Builder
		for _, r := range rec.Responses.Entries() {
			fmt.Fprintf(&sb, "• *%s*: %s\n", r.Key, truncate(strings.TrimSpace(r.Text), maxResponsePreview))
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: strings.TrimRight(sb.String(), "\n")},
		})
	}

	if !rec.CreatedAt.IsZero() {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: "Audited " + rec.CreatedAt.UTC().Format(time.RFC1123)}},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Blocks: blocks}
}

func joinKeys(keys []model.ModelKey) string {
	if len(keys) == 0 {
		return "none"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
