package integrations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/adsapi"
	"adboard-backend/internal/models"
	"adboard-backend/internal/secrets"
	"adboard-backend/internal/store"
)

func newTestRouter(t *testing.T, adsHandler http.Handler) (*gin.Engine, *secrets.Vault) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	vault := secrets.NewVault(store.New(nil))
	var ads *adsapi.Client
	if adsHandler != nil {
		server := httptest.NewServer(adsHandler)
		t.Cleanup(server.Close)
		ads = adsapi.NewClient(server.URL)
	} else {
		ads = adsapi.NewClient("")
	}
	Init(vault, ads)

	r := gin.New()
	r.GET("/integrations/secrets/:type", HandleGetSecret)
	r.PUT("/integrations/secrets/:type", HandleSaveSecret)
	r.POST("/integrations/secrets/:type/test", HandleTestSecret)
	r.GET("/integrations/adaccounts", HandleListAdAccounts)
	return r, vault
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSaveSecretReturnsMaskedValue(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodPut, "/integrations/secrets/facebook", gin.H{"value": "EAAtokenvalue1234"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Masked string `json:"masked"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SecretStatusUntested, resp.Status)
	assert.Equal(t, "EA••••••34", resp.Masked)
	assert.NotContains(t, w.Body.String(), "EAAtokenvalue1234")
}

func TestGetSecretNeverRevealsPlaintext(t *testing.T) {
	r, vault := newTestRouter(t, nil)
	vault.Save(models.SecretTypeFacebook, "supersecrettoken")

	w := doJSON(t, r, http.MethodGet, "/integrations/secrets/FACEBOOK", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "supersecrettoken")
	assert.Contains(t, w.Body.String(), `"configured":true`)
}

func TestGetSecretUnknownType(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodGet, "/integrations/secrets/STRIPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTestSecretPromotesValidToken(t *testing.T) {
	r, vault := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"id":"123","name":"Agency"}`))
	}))
	vault.Save(models.SecretTypeFacebook, "good-token")

	w := doJSON(t, r, http.MethodPost, "/integrations/secrets/FACEBOOK/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, vault.HasValid(models.SecretTypeFacebook))
}

func TestTestSecretDemotesRejectedToken(t *testing.T) {
	r, vault := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	vault.Save(models.SecretTypeFacebook, "bad-token")

	w := doJSON(t, r, http.MethodPost, "/integrations/secrets/FACEBOOK/test", nil)
	require.Equal(t, http.StatusOK, w.Code)

	secret, ok := vault.Get(models.SecretTypeFacebook)
	require.True(t, ok)
	assert.Equal(t, models.SecretStatusInvalid, secret.Status)
	assert.False(t, vault.HasValid(models.SecretTypeFacebook))
}

func TestTestSecretWithoutValueStored(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := doJSON(t, r, http.MethodPost, "/integrations/secrets/FACEBOOK/test", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CREDENTIAL_MISSING")
}

func TestListAdAccounts(t *testing.T) {
	r, vault := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"data":[{"id":"act_1","name":"Main"},{"id":"act_2","name":"Secondary"}]}`))
	}))
	vault.Save(models.SecretTypeFacebook, "good-token")

	w := doJSON(t, r, http.MethodGet, "/integrations/adaccounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "act_1")
	assert.Contains(t, w.Body.String(), `"total":2`)
}
