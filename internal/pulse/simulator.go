package pulse

import (
	"math/rand"

	"adboard-backend/internal/metrics"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
)

const defaultCPC = 1.5

// Simulator organically grows the metrics of campaigns that have no real data
// source, so demo dashboards do not look frozen between syncs. It only ever
// touches MOCK records: REAL_API data is externally-sourced truth and must not
// be clobbered between sync cycles.
type Simulator struct {
	store *store.Store
}

// New creates a simulator over the shared store.
func New(s *store.Store) *Simulator {
	return &Simulator{store: s}
}

// Tick applies one bounded random-walk step to every eligible campaign.
// Eligibility is re-checked every tick against the current assignment graph:
// a campaign unassigned mid-flight stops growing immediately. The step runs
// inside a single atomic mutate so readers never see a half-mutated tick and
// campaigns written by the sync engine mid-tick are not clobbered.
func (s *Simulator) Tick() int {
	assigned := models.AssignedCampaignIDs(s.store.Clients())

	mutated := 0
	s.store.MutateCampaigns(func(campaigns []models.CampaignStats) []models.CampaignStats {
		for i := range campaigns {
			if !eligible(campaigns[i], assigned) {
				continue
			}
			step(&campaigns[i])
			mutated++
		}
		if mutated == 0 {
			return nil
		}
		return campaigns
	})
	return mutated
}

func eligible(c models.CampaignStats, assigned map[string]bool) bool {
	if c.Status != models.CampaignStatusActive {
		return false
	}
	if c.DataSource != models.DataSourceMock {
		return false
	}
	return assigned[c.CampaignID]
}

// step advances one campaign by a single bounded random walk increment and
// recomputes every derived metric so the record stays internally consistent.
func step(c *models.CampaignStats) {
	newImpressions := int64(5 + rand.Intn(60))

	var newClicks int64
	if rand.Float64() < 0.35 {
		newClicks = int64(1 + rand.Intn(3))
	}

	var newConversions int64
	if rand.Float64() < 0.06 {
		newConversions = 1
	}

	cpc := c.CPC
	if cpc <= 0 {
		cpc = defaultCPC
	}
	newSpend := float64(newClicks) * cpc * (0.9 + rand.Float64()*0.2)

	raw := metrics.Raw{
		Spend:       c.Spend + newSpend,
		Impressions: c.Impressions + newImpressions,
		Clicks:      c.Clicks + newClicks,
		Reach:       c.Reach + newImpressions*int64(55+rand.Intn(30))/100,
		Conversions: c.Conversions + newConversions,
	}
	if raw.Reach > 0 {
		raw.Frequency = float64(raw.Impressions) / float64(raw.Reach)
	}
	metrics.Apply(c, raw)
}
