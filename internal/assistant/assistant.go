package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant answers questions and writes reports over the current campaign
// data using an OpenAI-compatible chat-completions API. The credential comes
// from the AI integration secret; a missing or unreadable secret surfaces as
// CREDENTIAL_MISSING rather than a transport error.
type Assistant struct {
	vault   *secrets.Vault
	baseURL string
	model   string
	client  *http.Client
}

// New creates an assistant. baseURL and model may be empty for the defaults.
func New(vault *secrets.Vault, baseURL, model string) *Assistant {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Assistant{
		vault:   vault,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateReport produces a plain-text performance report for the given
// campaigns.
func (a *Assistant) GenerateReport(ctx context.Context, campaigns []models.CampaignStats) (string, error) {
	prompt := "You are a marketing analyst. Write a concise performance report for these campaigns. " +
		"Highlight best and worst CTR, CPC and ROAS, and flag campaigns with spend but no conversions.\n\n" +
		summarize(campaigns)

	return a.complete(ctx, []Message{{Role: "user", Content: prompt}})
}

// Chat answers one user message with conversation history and the current
// campaign data as context.
func (a *Assistant) Chat(ctx context.Context, message string, history []Message, campaigns []models.CampaignStats) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{
		Role: "system",
		Content: "You are the analytics assistant of a marketing agency dashboard. " +
			"Answer using only the campaign data below. Figures marked MOCK are simulated estimates.\n\n" +
			summarize(campaigns),
	})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: message})

	return a.complete(ctx, messages)
}

func (a *Assistant) complete(ctx context.Context, messages []Message) (string, error) {
	apiKey := a.vault.Reveal(models.SecretTypeAI)
	if apiKey == "" {
		return "", errors.ErrCredentialMissing
	}

	body := map[string]any{
		"model":       a.model,
		"messages":    messages,
		"max_tokens":  900,
		"temperature": 0.3,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("assistant API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in assistant response")
	}
	return result.Choices[0].Message.Content, nil
}

// summarize renders campaigns as a compact table the model can read reliably.
func summarize(campaigns []models.CampaignStats) string {
	if len(campaigns) == 0 {
		return "No campaign data available."
	}

	var b strings.Builder
	b.WriteString("campaign_id | name | status | source | spend | impressions | clicks | conversions | ctr | cpc | cpa | roas\n")
	for _, c := range campaigns {
		fmt.Fprintf(&b, "%s | %s | %s | %s | %.2f | %d | %d | %d | %.4f | %.2f | %.2f | %.2f\n",
			c.CampaignID, c.Name, c.Status, c.DataSource,
			c.Spend, c.Impressions, c.Clicks, c.Conversions,
			c.CTR, c.CPC, c.CPA, c.ROAS)
	}
	return b.String()
}
