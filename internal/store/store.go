package store

import (
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"adboard-backend/internal/models"
	"adboard-backend/pkg/utils"
)

// Store holds the three dashboard collections (clients, campaigns, secrets)
// in memory and mirrors every write to the durable database best-effort. The
// in-memory cache is the source of truth for request handling; database
// failures are logged and never block a cache write, so the dashboard stays
// responsive when the durable store is down.
//
// All mutations replace whole values under one lock, never partial in-place
// edits visible to concurrent readers.
type Store struct {
	mu        sync.RWMutex
	db        *gorm.DB
	clients   []models.Client
	campaigns []models.CampaignStats
	secrets   map[string]models.IntegrationSecret
}

// New creates a Store backed by db. A nil db is valid and keeps the store
// cache-only.
func New(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		secrets: make(map[string]models.IntegrationSecret),
	}
}

// Load hydrates the cache from the durable store. Missing tables or a nil db
// leave the cache empty rather than failing.
func (s *Store) Load() error {
	if s.db == nil {
		return nil
	}

	var clients []models.Client
	if err := s.db.Order("id").Find(&clients).Error; err != nil {
		return err
	}

	var campaigns []models.CampaignStats
	if err := s.db.Order("campaign_id").Find(&campaigns).Error; err != nil {
		return err
	}

	var secretRows []models.IntegrationSecret
	if err := s.db.Find(&secretRows).Error; err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = clients
	s.campaigns = dedupeByCampaignID(campaigns)
	s.secrets = make(map[string]models.IntegrationSecret, len(secretRows))
	for _, secret := range secretRows {
		s.secrets[secret.Type] = secret
	}

	log.Printf("✅ Store loaded: %d clients, %d campaigns, %d secrets",
		len(s.clients), len(s.campaigns), len(s.secrets))
	return nil
}

// Clients returns a snapshot copy of all clients.
func (s *Store) Clients() []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// ClientByID returns a copy of one client.
func (s *Store) ClientByID(id uint) (models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if client.ID == id {
			return client, true
		}
	}
	return models.Client{}, false
}

// Campaigns returns a snapshot copy of all cached campaign records.
func (s *Store) Campaigns() []models.CampaignStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CampaignStats, len(s.campaigns))
	copy(out, s.campaigns)
	return out
}

// CampaignByID returns a copy of the record with the given external campaign id.
func (s *Store) CampaignByID(campaignID string) (models.CampaignStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.campaigns {
		if c.CampaignID == campaignID {
			return c, true
		}
	}
	return models.CampaignStats{}, false
}

// Secret returns the active secret for a type.
func (s *Store) Secret(secretType string) (models.IntegrationSecret, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[secretType]
	return secret, ok
}

// Secrets returns a snapshot of all secrets keyed by type.
func (s *Store) Secrets() map[string]models.IntegrationSecret {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.IntegrationSecret, len(s.secrets))
	for k, v := range s.secrets {
		out[k] = v
	}
	return out
}

// SaveClients replaces the client collection.
func (s *Store) SaveClients(clients []models.Client) {
	snapshot := make([]models.Client, len(clients))
	copy(snapshot, clients)

	s.mu.Lock()
	s.clients = snapshot
	s.mu.Unlock()

	s.persistClients(snapshot)
}

// UpsertClient inserts or updates one client and returns the stored value.
func (s *Store) UpsertClient(client models.Client) models.Client {
	saved, _ := s.UpsertClientChecked(client, nil)
	return saved
}

// UpsertClientChecked validates against the current client collection and
// applies the upsert under the same lock, so a check like assignment-conflict
// detection cannot race a concurrent client write. check receives a copy of
// the collection as it is at commit time; a non-nil error aborts the upsert.
func (s *Store) UpsertClientChecked(client models.Client, check func(current []models.Client) error) (models.Client, error) {
	now := time.Now()
	s.mu.Lock()
	if check != nil {
		current := make([]models.Client, len(s.clients))
		copy(current, s.clients)
		if err := check(current); err != nil {
			s.mu.Unlock()
			return models.Client{}, err
		}
	}
	if client.ID == 0 {
		client.ID = s.nextClientIDLocked()
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	replaced := false
	updated := make([]models.Client, len(s.clients))
	copy(updated, s.clients)
	for i := range updated {
		if updated[i].ID == client.ID {
			if client.CreatedAt.IsZero() {
				client.CreatedAt = updated[i].CreatedAt
			}
			updated[i] = client
			replaced = true
			break
		}
	}
	if !replaced {
		if client.CreatedAt.IsZero() {
			client.CreatedAt = now
		}
		updated = append(updated, client)
	}
	s.clients = updated
	snapshot := make([]models.Client, len(updated))
	copy(snapshot, updated)
	s.mu.Unlock()

	s.persistClients(snapshot)
	return client, nil
}

// DeleteClient removes a client by id. The client's campaign records stay in
// the cache (frozen, no longer simulated or synced); purging them is a product
// decision we deliberately do not make here.
func (s *Store) DeleteClient(id uint) bool {
	s.mu.Lock()
	updated := make([]models.Client, 0, len(s.clients))
	found := false
	for _, client := range s.clients {
		if client.ID == id {
			found = true
			continue
		}
		updated = append(updated, client)
	}
	s.clients = updated
	snapshot := make([]models.Client, len(updated))
	copy(snapshot, updated)
	s.mu.Unlock()

	if found {
		s.persistClients(snapshot)
	}
	return found
}

// ReplaceCampaigns swaps in a whole new campaign collection, deduplicated by
// CampaignID (last writer wins). Readers never observe a partially-merged
// collection.
func (s *Store) ReplaceCampaigns(campaigns []models.CampaignStats) {
	deduped := dedupeByCampaignID(campaigns)

	s.mu.Lock()
	s.campaigns = deduped
	snapshot := make([]models.CampaignStats, len(deduped))
	copy(snapshot, deduped)
	s.mu.Unlock()

	s.persistCampaigns(snapshot)
}

// MutateCampaigns applies fn to the campaign collection atomically with
// respect to every other campaign write: fn receives a copy of the collection
// as it is at commit time, not as it was when the caller last read it, so the
// sync engine, the reconciler, and the pulse cannot overwrite each other's
// in-flight writes. Returning nil leaves the collection untouched. The result
// is deduplicated by CampaignID.
func (s *Store) MutateCampaigns(fn func(current []models.CampaignStats) []models.CampaignStats) {
	s.mu.Lock()
	current := make([]models.CampaignStats, len(s.campaigns))
	copy(current, s.campaigns)
	updated := fn(current)
	if updated == nil {
		s.mu.Unlock()
		return
	}
	deduped := dedupeByCampaignID(updated)
	s.campaigns = deduped
	snapshot := make([]models.CampaignStats, len(deduped))
	copy(snapshot, deduped)
	s.mu.Unlock()

	s.persistCampaigns(snapshot)
}

// UpdateCampaign overwrites the record with the same CampaignID, if present.
func (s *Store) UpdateCampaign(stats models.CampaignStats) bool {
	s.mu.Lock()
	updated := make([]models.CampaignStats, len(s.campaigns))
	copy(updated, s.campaigns)
	found := false
	for i := range updated {
		if updated[i].CampaignID == stats.CampaignID {
			stats.ID = updated[i].ID
			stats.CreatedAt = updated[i].CreatedAt
			stats.UpdatedAt = time.Now()
			updated[i] = stats
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	s.campaigns = updated
	snapshot := make([]models.CampaignStats, len(updated))
	copy(snapshot, updated)
	s.mu.Unlock()

	s.persistCampaigns(snapshot)
	return true
}

// SaveSecret stores the active secret for its type, replacing any prior one.
func (s *Store) SaveSecret(secret models.IntegrationSecret) {
	secret.UpdatedAt = time.Now()
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = secret.UpdatedAt
	}

	s.mu.Lock()
	if prior, ok := s.secrets[secret.Type]; ok {
		secret.ID = prior.ID
		secret.CreatedAt = prior.CreatedAt
	}
	s.secrets[secret.Type] = secret
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("type = ?", secret.Type).Delete(&models.IntegrationSecret{}).Error; err != nil {
			return err
		}
		row := secret
		row.ID = 0
		return tx.Create(&row).Error
	})
	if err != nil {
		utils.HandleError(err, "store.SaveSecret")
	}
}

// RecordSyncRun appends a sync audit row, best-effort.
func (s *Store) RecordSyncRun(run models.SyncRun) {
	if s.db == nil {
		return
	}
	if err := s.db.Create(&run).Error; err != nil {
		utils.HandleError(err, "store.RecordSyncRun")
	}
}

func (s *Store) nextClientIDLocked() uint {
	var max uint
	for _, client := range s.clients {
		if client.ID > max {
			max = client.ID
		}
	}
	return max + 1
}

// persistClients fully replaces the durable client collection.
func (s *Store) persistClients(clients []models.Client) {
	if s.db == nil {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Client{}).Error; err != nil {
			return err
		}
		if len(clients) == 0 {
			return nil
		}
		return tx.Create(&clients).Error
	})
	if err != nil {
		utils.HandleError(err, "store.persistClients")
	}
}

// persistCampaigns fully replaces the durable campaign collection.
func (s *Store) persistCampaigns(campaigns []models.CampaignStats) {
	if s.db == nil {
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CampaignStats{}).Error; err != nil {
			return err
		}
		if len(campaigns) == 0 {
			return nil
		}
		return tx.Create(&campaigns).Error
	})
	if err != nil {
		utils.HandleError(err, "store.persistCampaigns")
	}
}

// dedupeByCampaignID keeps the last record seen for each CampaignID while
// preserving first-seen order.
func dedupeByCampaignID(campaigns []models.CampaignStats) []models.CampaignStats {
	index := make(map[string]int, len(campaigns))
	out := make([]models.CampaignStats, 0, len(campaigns))
	for _, c := range campaigns {
		if i, ok := index[c.CampaignID]; ok {
			out[i] = c
			continue
		}
		index[c.CampaignID] = len(out)
		out = append(out, c)
	}
	return out
}
