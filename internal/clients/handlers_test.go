package clients

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
)

func newTestRouter(t *testing.T, s *store.Store) (*gin.Engine, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var reconciles int
	Init(s, func() { reconciles++ })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("role", "admin")
		c.Next()
	})
	r.GET("/clients", HandleListClients)
	r.GET("/clients/:id", HandleGetClient)
	r.POST("/clients", HandleCreateClient)
	r.PUT("/clients/:id", HandleUpdateClient)
	r.DELETE("/clients/:id", HandleDeleteClient)
	return r, &reconciles
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

func TestCreateClientTriggersReconcile(t *testing.T) {
	s := store.New(nil)
	r, reconciles := newTestRouter(t, s)

	w := doJSON(t, r, http.MethodPost, "/clients", gin.H{
		"name":        "Acme",
		"campaignIds": []string{"cp_1", "cp_2"},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, *reconciles)
	require.Len(t, s.Clients(), 1)
	assert.Equal(t, models.StringArray{"cp_1", "cp_2"}, s.Clients()[0].CampaignIDs)
}

func TestCreateClientRejectsConflictingAssignment(t *testing.T) {
	s := store.New(nil)
	s.UpsertClient(models.Client{Name: "First", CampaignIDs: models.StringArray{"cp_1"}})
	r, reconciles := newTestRouter(t, s)

	w := doJSON(t, r, http.MethodPost, "/clients", gin.H{
		"name":        "Second",
		"campaignIds": []string{"cp_1"},
	})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ASSIGNMENT_CONFLICT")
	assert.Equal(t, 0, *reconciles)
	assert.Len(t, s.Clients(), 1)
}

func TestCreateClientRejectsDuplicateIDsInRequest(t *testing.T) {
	s := store.New(nil)
	r, _ := newTestRouter(t, s)

	w := doJSON(t, r, http.MethodPost, "/clients", gin.H{
		"name":        "Acme",
		"campaignIds": []string{"cp_1", "cp_1"},
	})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_ASSIGNMENT")
}

func TestUpdateClientKeepsOwnAssignments(t *testing.T) {
	s := store.New(nil)
	saved := s.UpsertClient(models.Client{Name: "Acme", CampaignIDs: models.StringArray{"cp_1"}})
	r, _ := newTestRouter(t, s)

	// Re-submitting its own campaign id is not a conflict.
	w := doJSON(t, r, http.MethodPut, "/clients/1", gin.H{
		"name":        "Acme Renamed",
		"campaignIds": []string{"cp_1", "cp_3"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	updated, ok := s.ClientByID(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Acme Renamed", updated.Name)
	assert.Equal(t, models.StringArray{"cp_1", "cp_3"}, updated.CampaignIDs)
}

func TestDeleteClientFreezesCampaigns(t *testing.T) {
	s := store.New(nil)
	saved := s.UpsertClient(models.Client{Name: "Acme", CampaignIDs: models.StringArray{"cp_1"}})
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "x", CampaignID: "cp_1", Status: models.CampaignStatusActive}})
	r, _ := newTestRouter(t, s)

	w := doJSON(t, r, http.MethodDelete, "/clients/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	_, ok := s.ClientByID(saved.ID)
	assert.False(t, ok)
	// The campaign record stays in the cache, frozen, not purged.
	assert.Len(t, s.Campaigns(), 1)
}

func TestDeleteUnknownClient(t *testing.T) {
	s := store.New(nil)
	r, reconciles := newTestRouter(t, s)

	w := doJSON(t, r, http.MethodDelete, "/clients/42", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, *reconciles)
}
