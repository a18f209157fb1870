package adsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ConversionActionTypes is the single allow-list of action types counted as
// conversions. Every call site sums conversions from this list; do not add a
// second list elsewhere.
var ConversionActionTypes = map[string]bool{
	"onsite_conversion.messaging_conversation_started_7d": true,
	"offsite_conversion.fb_pixel_purchase":                true,
	"purchase":                                            true,
	"omni_purchase":                                       true,
	"lead":                                                true,
	"complete_registration":                               true,
}

// Action is one platform action counter attached to an insight row.
type Action struct {
	Type  string
	Value float64
}

// Insight is the normalized performance aggregate for a campaign.
type Insight struct {
	Spend       float64
	Impressions int64
	Reach       int64
	Frequency   float64
	Clicks      int64
	Actions     []Action
}

// AccountCampaign is the normalized shape of one campaign returned from an ad
// account listing. Raw API payloads never leave this package.
type AccountCampaign struct {
	ID      string
	Name    string
	Status  string
	Insight *Insight
}

// AdAccount is one ad account visible to the credential.
type AdAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// InsightPoint is one day of the 30-day history series for a campaign.
type InsightPoint struct {
	Date        string
	Spend       float64
	Conversions int64
}

// APIError is a structured error returned by the ads platform.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ads platform error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Client talks to the external ads platform read API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an ads API client. baseURL may be empty for the production
// endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// The platform has no SLA worth waiting longer for; a hung call would
		// otherwise stall a whole sync pass.
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// SumConversions adds up the values of all allow-listed actions.
func SumConversions(actions []Action) int64 {
	var total float64
	for _, action := range actions {
		if ConversionActionTypes[action.Type] {
			total += action.Value
		}
	}
	return int64(total)
}

// ValidateToken checks the credential against /me. A payload containing an
// error field means the token is invalid; transport failures are returned as-is
// so callers can distinguish connectivity from rejection.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	var payload struct {
		ID    string        `json:"id"`
		Error *errorPayload `json:"error"`
	}
	if err := c.get(ctx, "/me", url.Values{"access_token": {token}}, &payload); err != nil {
		if _, ok := err.(*APIError); ok {
			// The platform answered; it just rejected the token.
			return false, nil
		}
		return false, err
	}
	return payload.Error == nil, nil
}

// ListAdAccounts returns the ad accounts visible to the credential.
func (c *Client) ListAdAccounts(ctx context.Context, token string) ([]AdAccount, error) {
	params := url.Values{
		"fields":       {"name,currency,id"},
		"access_token": {token},
	}
	var payload struct {
		Data  []AdAccount   `json:"data"`
		Error *errorPayload `json:"error"`
	}
	if err := c.get(ctx, "/me/adaccounts", params, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, &APIError{Message: payload.Error.Message, StatusCode: http.StatusOK}
	}
	return payload.Data, nil
}

// FetchAccountCampaigns returns all campaigns of one ad account with their
// maximum-range insights attached.
func (c *Client) FetchAccountCampaigns(ctx context.Context, accountID, token string) ([]AccountCampaign, error) {
	params := url.Values{
		"fields":       {"name,status,id,insights.date_preset(maximum){spend,impressions,reach,frequency,clicks,actions}"},
		"access_token": {token},
	}
	var payload struct {
		Data  []rawCampaign `json:"data"`
		Error *errorPayload `json:"error"`
	}
	if err := c.get(ctx, "/"+url.PathEscape(accountID)+"/campaigns", params, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, &APIError{Message: payload.Error.Message, StatusCode: http.StatusOK}
	}

	campaigns := make([]AccountCampaign, 0, len(payload.Data))
	for _, raw := range payload.Data {
		campaigns = append(campaigns, raw.normalize())
	}
	return campaigns, nil
}

// FetchInsightHistory returns the last-30-days daily series for a campaign.
func (c *Client) FetchInsightHistory(ctx context.Context, campaignID, token string) ([]InsightPoint, error) {
	params := url.Values{
		"fields":         {"spend,actions,date_start"},
		"date_preset":    {"last_30d"},
		"time_increment": {"1"},
		"access_token":   {token},
	}
	var payload struct {
		Data []struct {
			Spend     flexFloat   `json:"spend"`
			DateStart string      `json:"date_start"`
			Actions   []rawAction `json:"actions"`
		} `json:"data"`
		Error *errorPayload `json:"error"`
	}
	if err := c.get(ctx, "/"+url.PathEscape(campaignID)+"/insights", params, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, &APIError{Message: payload.Error.Message, StatusCode: http.StatusOK}
	}

	points := make([]InsightPoint, 0, len(payload.Data))
	for _, row := range payload.Data {
		actions := make([]Action, 0, len(row.Actions))
		for _, a := range row.Actions {
			actions = append(actions, a.normalize())
		}
		points = append(points, InsightPoint{
			Date:        row.DateStart,
			Spend:       float64(row.Spend),
			Conversions: SumConversions(actions),
		})
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ads platform request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read ads platform response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		var envelope struct {
			Error *errorPayload `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			message = envelope.Error.Message
		}
		return &APIError{Message: message, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode ads platform response: %w", err)
	}
	return nil
}

// Wire shapes. The platform serializes numbers as strings; flexFloat and
// flexInt accept both.

type errorPayload struct {
	Message string `json:"message"`
}

type rawAction struct {
	ActionType string    `json:"action_type"`
	Value      flexFloat `json:"value"`
}

func (a rawAction) normalize() Action {
	return Action{Type: a.ActionType, Value: float64(a.Value)}
}

type rawCampaign struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Insights *struct {
		Data []struct {
			Spend       flexFloat   `json:"spend"`
			Impressions flexInt     `json:"impressions"`
			Reach       flexInt     `json:"reach"`
			Frequency   flexFloat   `json:"frequency"`
			Clicks      flexInt     `json:"clicks"`
			Actions     []rawAction `json:"actions"`
		} `json:"data"`
	} `json:"insights"`
}

func (r rawCampaign) normalize() AccountCampaign {
	campaign := AccountCampaign{
		ID:     r.ID,
		Name:   r.Name,
		Status: strings.ToUpper(strings.TrimSpace(r.Status)),
	}
	if r.Insights == nil || len(r.Insights.Data) == 0 {
		return campaign
	}
	row := r.Insights.Data[0]
	insight := Insight{
		Spend:       float64(row.Spend),
		Impressions: int64(row.Impressions),
		Reach:       int64(row.Reach),
		Frequency:   float64(row.Frequency),
		Clicks:      int64(row.Clicks),
	}
	for _, a := range row.Actions {
		insight.Actions = append(insight.Actions, a.normalize())
	}
	campaign.Insight = &insight
	return campaign
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	if trimmed == "" || trimmed == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		// Malformed counters default to zero rather than poisoning the merge.
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	if trimmed == "" || trimmed == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		*i = 0
		return nil
	}
	*i = flexInt(v)
	return nil
}
