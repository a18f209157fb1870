package reconciler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/models"
)

func TestReconcileProvisionsMissingCampaign(t *testing.T) {
	clients := []models.Client{
		{ID: 1, Name: "Acme Corp", CampaignIDs: models.StringArray{"cp_9"}},
	}

	created := Reconcile(clients, nil)
	require.Len(t, created, 1)

	c := created[0]
	assert.Equal(t, "cp_9", c.CampaignID)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.DataSourceMock, c.DataSource)
	assert.Equal(t, models.CampaignStatusActive, c.Status)
	assert.Contains(t, c.Name, "cp_9")
	assert.Contains(t, c.Name, "Acme Corp")

	// Seeded derived metrics must be consistent with the seeded counters.
	require.Positive(t, c.Impressions)
	assert.InDelta(t, float64(c.Clicks)/float64(c.Impressions), c.CTR, 1e-9)
	require.Positive(t, c.Clicks)
	assert.InDelta(t, c.Spend/float64(c.Clicks), c.CPC, 1e-9)
	assert.False(t, math.IsNaN(c.ROAS))
}

func TestReconcileIdempotent(t *testing.T) {
	clients := []models.Client{
		{ID: 1, Name: "Acme", CampaignIDs: models.StringArray{"cp_1", "cp_2"}},
		{ID: 2, Name: "Globex", CampaignIDs: models.StringArray{"cp_3"}},
	}

	first := Reconcile(clients, nil)
	require.Len(t, first, 3)

	second := Reconcile(clients, first)
	assert.Empty(t, second)
}

func TestReconcileNeverDuplicatesExisting(t *testing.T) {
	clients := []models.Client{
		{ID: 1, Name: "Acme", CampaignIDs: models.StringArray{"cp_1", "cp_2"}},
	}
	cache := []models.CampaignStats{{ID: "x", CampaignID: "cp_1"}}

	created := Reconcile(clients, cache)
	require.Len(t, created, 1)
	assert.Equal(t, "cp_2", created[0].CampaignID)
}

func TestReconcileSharedAssignmentProvisionsOnce(t *testing.T) {
	// Two clients pointing at the same id must still produce one record.
	clients := []models.Client{
		{ID: 1, Name: "Acme", CampaignIDs: models.StringArray{"cp_1"}},
		{ID: 2, Name: "Globex", CampaignIDs: models.StringArray{"cp_1"}},
	}

	created := Reconcile(clients, nil)
	assert.Len(t, created, 1)
}

func TestReconcileNoClients(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil))
}
