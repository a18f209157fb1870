package reconciler

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"adboard-backend/internal/metrics"
	"adboard-backend/internal/models"
)

// Opening-state ranges for auto-provisioned placeholders. The exact bounds are
// a presentation policy, not a correctness requirement; they only need to look
// plausible on a dashboard until real data arrives.
const (
	minOpeningSpend       = 50
	maxOpeningSpend       = 600
	minOpeningImpressions = 2000
	maxOpeningImpressions = 25000
	maxOpeningConversions = 12
)

// Reconcile diffs the client assignment graph against the campaign cache and
// returns placeholder records for every assigned campaign id that has no cached
// record yet. It never returns a record for a campaign id already present, so
// running it any number of times against an unchanged graph is idempotent.
func Reconcile(clients []models.Client, cache []models.CampaignStats) []models.CampaignStats {
	existing := make(map[string]bool, len(cache))
	for _, c := range cache {
		existing[c.CampaignID] = true
	}

	assigned := models.AssignedCampaignIDs(clients)

	var created []models.CampaignStats
	for campaignID := range assigned {
		if existing[campaignID] {
			continue
		}
		created = append(created, provision(campaignID, clients))
		existing[campaignID] = true
	}

	if len(created) > 0 {
		log.Printf("🧩 Reconciler provisioned %d placeholder campaign(s)", len(created))
	}
	return created
}

// provision builds one MOCK placeholder with a bounded random opening state.
func provision(campaignID string, clients []models.Client) models.CampaignStats {
	impressions := int64(minOpeningImpressions + rand.Intn(maxOpeningImpressions-minOpeningImpressions))
	// Opening CTR between 1% and 4%.
	clicks := impressions * int64(10+rand.Intn(30)) / 1000
	if clicks < 1 {
		clicks = 1
	}

	raw := metrics.Raw{
		Spend:       float64(minOpeningSpend) + rand.Float64()*float64(maxOpeningSpend-minOpeningSpend),
		Impressions: impressions,
		Clicks:      clicks,
		Reach:       impressions * int64(60+rand.Intn(30)) / 100,
		Conversions: int64(rand.Intn(maxOpeningConversions + 1)),
	}
	raw.Frequency = 0
	if raw.Reach > 0 {
		raw.Frequency = float64(raw.Impressions) / float64(raw.Reach)
	}

	stats := metrics.Derive(raw)
	stats.ID = uuid.NewString()
	stats.CampaignID = campaignID
	stats.Name = placeholderName(campaignID, clients)
	stats.Date = time.Now().Format("2006-01-02")
	stats.Status = models.CampaignStatusActive
	stats.DataSource = models.DataSourceMock
	stats.IsValidated = false
	return stats
}

// placeholderName combines the campaign id with the first owning client's name
// so an admin can tell at a glance where an unsynced record came from.
func placeholderName(campaignID string, clients []models.Client) string {
	if owner := models.FirstOwner(clients, campaignID); owner != nil {
		return fmt.Sprintf("%s · %s", campaignID, owner.Name)
	}
	return campaignID
}
