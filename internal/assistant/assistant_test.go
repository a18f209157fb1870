package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
	"adboard-backend/internal/store"
)

func newTestAssistant(t *testing.T, handler http.Handler) (*Assistant, *secrets.Vault) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	vault := secrets.NewVault(store.New(nil))
	return New(vault, server.URL, "test-model"), vault
}

func TestChatSendsCampaignContext(t *testing.T) {
	var captured struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"choices":[{"message":{"content":"CTR looks healthy."}}]}`))
	})
	a, vault := newTestAssistant(t, handler)
	vault.Save(models.SecretTypeAI, "sk-test")

	campaigns := []models.CampaignStats{{CampaignID: "cp_1", Name: "Spring", Status: "ACTIVE", DataSource: "REAL_API", CTR: 0.05}}
	reply, err := a.Chat(context.Background(), "How is cp_1 doing?",
		[]Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}, campaigns)

	require.NoError(t, err)
	assert.Equal(t, "CTR looks healthy.", reply)
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 4) // system + 2 history + user
	assert.Contains(t, captured.Messages[0].Content, "cp_1")
	assert.Equal(t, "How is cp_1 doing?", captured.Messages[3].Content)
}

func TestGenerateReportWithoutCredential(t *testing.T) {
	a, _ := newTestAssistant(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an AI credential")
	}))

	_, err := a.GenerateReport(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrCredentialMissing)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	a, vault := newTestAssistant(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	vault.Save(models.SecretTypeAI, "sk-test")

	_, err := a.GenerateReport(context.Background(), []models.CampaignStats{{CampaignID: "cp_1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
