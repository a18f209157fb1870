package adsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAccountCampaignsNormalizesStringNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/act_1/campaigns", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"id":"cp_1","name":"Spring Launch","status":"active",
			"insights":{"data":[{
				"spend":"123.45","impressions":"10000","reach":"8000",
				"frequency":"1.25","clicks":"250",
				"actions":[
					{"action_type":"purchase","value":"7"},
					{"action_type":"link_click","value":"90"},
					{"action_type":"lead","value":"3"}
				]
			}]}
		},{"id":"cp_2","name":"No Data","status":"PAUSED"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	campaigns, err := client.FetchAccountCampaigns(context.Background(), "act_1", "tok")
	require.NoError(t, err)
	require.Len(t, campaigns, 2)

	first := campaigns[0]
	assert.Equal(t, "cp_1", first.ID)
	assert.Equal(t, "ACTIVE", first.Status)
	require.NotNil(t, first.Insight)
	assert.Equal(t, 123.45, first.Insight.Spend)
	assert.Equal(t, int64(10000), first.Insight.Impressions)
	assert.Equal(t, int64(250), first.Insight.Clicks)
	assert.Equal(t, int64(10), SumConversions(first.Insight.Actions))

	assert.Nil(t, campaigns[1].Insight)
}

func TestFetchAccountCampaignsErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"(#100) Invalid account"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchAccountCampaigns(context.Background(), "act_x", "tok")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "Invalid account")
}

func TestFetchAccountCampaignsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchAccountCampaigns(context.Background(), "act_1", "bad")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestValidateToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") == "good" {
			w.Write([]byte(`{"id":"12345"}`))
			return
		}
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	ok, err := client.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.ValidateToken(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAdAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/adaccounts", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"act_1","name":"Main","currency":"USD"}]}`))
	}))
	defer server.Close()

	accounts, err := NewClient(server.URL).ListAdAccounts(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "act_1", accounts[0].ID)
	assert.Equal(t, "USD", accounts[0].Currency)
}

func TestFetchInsightHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cp_1/insights", r.URL.Path)
		assert.Equal(t, "last_30d", r.URL.Query().Get("date_preset"))
		w.Write([]byte(`{"data":[
			{"date_start":"2026-08-01","spend":"10.5","actions":[{"action_type":"purchase","value":"2"}]},
			{"date_start":"2026-08-02","spend":"12","actions":[{"action_type":"link_click","value":"4"}]}
		]}`))
	}))
	defer server.Close()

	points, err := NewClient(server.URL).FetchInsightHistory(context.Background(), "cp_1", "tok")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 10.5, points[0].Spend)
	assert.Equal(t, int64(2), points[0].Conversions)
	assert.Equal(t, int64(0), points[1].Conversions)
}

func TestSumConversionsUsesAllowListOnly(t *testing.T) {
	actions := []Action{
		{Type: "purchase", Value: 2},
		{Type: "omni_purchase", Value: 1},
		{Type: "onsite_conversion.messaging_conversation_started_7d", Value: 5},
		{Type: "link_click", Value: 400},
		{Type: "page_engagement", Value: 900},
	}
	assert.Equal(t, int64(8), SumConversions(actions))
}

func TestMalformedNumbersDefaultToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"cp_1","name":"X","status":"ACTIVE",
			"insights":{"data":[{"spend":"oops","impressions":null,"clicks":"12"}]}}]}`))
	}))
	defer server.Close()

	campaigns, err := NewClient(server.URL).FetchAccountCampaigns(context.Background(), "act_1", "tok")
	require.NoError(t, err)
	require.NotNil(t, campaigns[0].Insight)
	assert.Zero(t, campaigns[0].Insight.Spend)
	assert.Zero(t, campaigns[0].Insight.Impressions)
	assert.Equal(t, int64(12), campaigns[0].Insight.Clicks)
}
