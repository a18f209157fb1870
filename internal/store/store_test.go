package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adboard-backend/internal/models"
)

func TestReplaceCampaignsDedupesByCampaignID(t *testing.T) {
	s := New(nil)

	s.ReplaceCampaigns([]models.CampaignStats{
		{ID: "a", CampaignID: "cp_1", Spend: 10},
		{ID: "b", CampaignID: "cp_2", Spend: 20},
		{ID: "c", CampaignID: "cp_1", Spend: 30}, // last writer wins
	})

	campaigns := s.Campaigns()
	require.Len(t, campaigns, 2)
	assert.Equal(t, "cp_1", campaigns[0].CampaignID)
	assert.Equal(t, 30.0, campaigns[0].Spend)
	assert.Equal(t, "c", campaigns[0].ID)
}

func TestUpdateCampaignPreservesSurrogateID(t *testing.T) {
	s := New(nil)
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "local-1", CampaignID: "cp_1", Spend: 5}})

	ok := s.UpdateCampaign(models.CampaignStats{ID: "other", CampaignID: "cp_1", Spend: 50})
	require.True(t, ok)

	got, found := s.CampaignByID("cp_1")
	require.True(t, found)
	assert.Equal(t, "local-1", got.ID)
	assert.Equal(t, 50.0, got.Spend)
}

func TestUpdateCampaignUnknownIDIsNoop(t *testing.T) {
	s := New(nil)
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "a", CampaignID: "cp_1"}})

	assert.False(t, s.UpdateCampaign(models.CampaignStats{CampaignID: "cp_9"}))
	assert.Len(t, s.Campaigns(), 1)
}

func TestUpsertClientAssignsIDs(t *testing.T) {
	s := New(nil)

	first := s.UpsertClient(models.Client{Name: "Acme"})
	second := s.UpsertClient(models.Client{Name: "Globex"})
	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)

	first.Email = "ops@acme.example"
	s.UpsertClient(first)

	clients := s.Clients()
	require.Len(t, clients, 2)
	assert.Equal(t, "ops@acme.example", clients[0].Email)
}

func TestUpsertClientCheckedRunsCheckAtCommitTime(t *testing.T) {
	s := New(nil)
	s.UpsertClient(models.Client{Name: "Acme", CampaignIDs: models.StringArray{"cp_1"}})

	// The check sees the collection as it is when the write commits, and a
	// rejection aborts the upsert.
	_, err := s.UpsertClientChecked(models.Client{Name: "Globex", CampaignIDs: models.StringArray{"cp_1"}},
		func(current []models.Client) error {
			require.Len(t, current, 1)
			if owner := models.FirstOwner(current, "cp_1"); owner != nil {
				return assert.AnError
			}
			return nil
		})
	require.Error(t, err)
	assert.Len(t, s.Clients(), 1)

	saved, err := s.UpsertClientChecked(models.Client{Name: "Globex", CampaignIDs: models.StringArray{"cp_2"}},
		func(current []models.Client) error {
			if owner := models.FirstOwner(current, "cp_2"); owner != nil {
				return assert.AnError
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, uint(2), saved.ID)
	assert.Len(t, s.Clients(), 2)
}

func TestMutateCampaignsAppliesAgainstCurrentState(t *testing.T) {
	s := New(nil)
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "a", CampaignID: "cp_1", Spend: 1}})

	s.MutateCampaigns(func(current []models.CampaignStats) []models.CampaignStats {
		require.Len(t, current, 1)
		return append(current, models.CampaignStats{ID: "b", CampaignID: "cp_2"})
	})
	assert.Len(t, s.Campaigns(), 2)

	// A nil return leaves the collection untouched.
	s.MutateCampaigns(func(current []models.CampaignStats) []models.CampaignStats {
		return nil
	})
	assert.Len(t, s.Campaigns(), 2)
}

func TestDeleteClientKeepsCampaigns(t *testing.T) {
	s := New(nil)
	client := s.UpsertClient(models.Client{Name: "Acme", CampaignIDs: models.StringArray{"cp_1"}})
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "a", CampaignID: "cp_1"}})

	require.True(t, s.DeleteClient(client.ID))
	assert.Empty(t, s.Clients())
	// Orphaned records are frozen in place, never purged automatically.
	assert.Len(t, s.Campaigns(), 1)
}

func TestSaveSecretReplacesPerType(t *testing.T) {
	s := New(nil)

	s.SaveSecret(models.IntegrationSecret{Type: models.SecretTypeFacebook, Value: "one", Status: models.SecretStatusUntested})
	s.SaveSecret(models.IntegrationSecret{Type: models.SecretTypeFacebook, Value: "two", Status: models.SecretStatusValid})
	s.SaveSecret(models.IntegrationSecret{Type: models.SecretTypeAI, Value: "key"})

	secret, ok := s.Secret(models.SecretTypeFacebook)
	require.True(t, ok)
	assert.Equal(t, "two", secret.Value)
	assert.Equal(t, models.SecretStatusValid, secret.Status)
	assert.Len(t, s.Secrets(), 2)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New(nil)
	s.ReplaceCampaigns([]models.CampaignStats{{ID: "a", CampaignID: "cp_1", Spend: 1}})

	snap := s.Campaigns()
	snap[0].Spend = 999

	got, _ := s.CampaignByID("cp_1")
	assert.Equal(t, 1.0, got.Spend)
}
