package models

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

// User is the login principal for the dashboard. Role is a two-value stub:
// "admin" manages everything, "client" sees only its own campaigns.
type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Email       string     `json:"email" gorm:"uniqueIndex"`
	Password    string     `json:"-"`
	Name        string     `json:"name"`
	Role        string     `json:"role" gorm:"default:'client'"` // admin, client
	ClientID    *uint      `json:"client_id,omitempty" gorm:"index"`
	Active      bool       `json:"active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Client is an agency customer. CampaignIDs is the authoritative assignment of
// which external campaigns belong to this client; AdAccounts lists the ad
// platform accounts the sync engine pulls from.
type Client struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Name        string      `json:"name" gorm:"not null"`
	Email       string      `json:"email" gorm:"index"`
	AdAccounts  StringArray `json:"ad_accounts" gorm:"type:text[]"`
	CampaignIDs StringArray `json:"campaign_ids" gorm:"type:text[]"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Campaign status values mirror the ad platform.
const (
	CampaignStatusActive   = "ACTIVE"
	CampaignStatusPaused   = "PAUSED"
	CampaignStatusArchived = "ARCHIVED"
)

// Data sources for a campaign record.
const (
	DataSourceMock    = "MOCK"
	DataSourceRealAPI = "REAL_API"
)

// CampaignStats is one cached performance record per external campaign.
// CampaignID is the natural key across the whole system; ID is a surrogate used
// only for listing and is never joined on. At most one record per CampaignID
// exists in the cache at any time.
type CampaignStats struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	CampaignID  string    `json:"campaign_id" gorm:"uniqueIndex;size:64;not null"`
	Name        string    `json:"name"`
	Date        string    `json:"date" gorm:"size:16"`
	Spend       float64   `json:"spend"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Reach       int64     `json:"reach"`
	Frequency   float64   `json:"frequency"`
	Conversions int64     `json:"conversions"`
	CTR         float64   `json:"ctr"`
	CPC         float64   `json:"cpc"`
	CPA         float64   `json:"cpa"`
	CPM         float64   `json:"cpm"`
	ROAS        float64   `json:"roas"`
	Status      string    `json:"status" gorm:"default:'ACTIVE'"`    // ACTIVE, PAUSED, ARCHIVED
	DataSource  string    `json:"data_source" gorm:"default:'MOCK'"` // MOCK, REAL_API
	LastSync    time.Time `json:"last_sync"`
	IsValidated bool      `json:"is_validated" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Integration secret types.
const (
	SecretTypeFacebook = "FACEBOOK"
	SecretTypeAI       = "AI"
	SecretTypeDatabase = "DATABASE"
)

// Integration secret statuses.
const (
	SecretStatusValid    = "VALID"
	SecretStatusInvalid  = "INVALID"
	SecretStatusUntested = "UNTESTED"
)

// IntegrationSecret holds one reversibly-encoded credential per integration
// type. Saving a secret of a type replaces the prior one.
type IntegrationSecret struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"uniqueIndex;size:32;not null"` // FACEBOOK, AI, DATABASE
	Value     string    `json:"-"`                                        // encoded, never serialized
	Status    string    `json:"status" gorm:"default:'UNTESTED'"`         // VALID, INVALID, UNTESTED
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncRun records the outcome of a live sync pass for diagnostics.
type SyncRun struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Trigger        string     `json:"trigger" gorm:"size:32"` // background, navigation, manual
	Forced         bool       `json:"forced"`
	ClientsScanned int        `json:"clients_scanned"`
	Merged         int        `json:"merged"`
	AccountErrors  int        `json:"account_errors"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StringArray is a custom type for PostgreSQL text[] arrays
type StringArray []string

// Value implements the driver.Valuer interface for StringArray
func (sa StringArray) Value() (driver.Value, error) {
	if len(sa) == 0 {
		return nil, nil
	}
	var quoted []string
	for _, s := range sa {
		quoted = append(quoted, `"`+strings.ReplaceAll(s, `"`, `\"`)+`"`)
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}

// Scan implements the sql.Scanner interface for StringArray
func (sa *StringArray) Scan(value interface{}) error {
	if value == nil {
		*sa = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			*sa = StringArray{}
			return nil
		}
		// PostgreSQL array format: {item1,item2,item3}
		if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") {
			content := v[1 : len(v)-1]
			if content == "" {
				*sa = StringArray{}
				return nil
			}
			rawEntries := strings.Split(content, ",")
			clean := make([]string, 0, len(rawEntries))
			for _, entry := range rawEntries {
				entry = strings.TrimSpace(entry)
				entry = strings.Trim(entry, `"`)
				entry = strings.ReplaceAll(entry, `\"`, `"`)
				clean = append(clean, entry)
			}
			*sa = StringArray(clean)
		} else {
			// Fallback for comma-separated format (sqlite)
			rawEntries := strings.Split(v, ",")
			clean := make([]string, 0, len(rawEntries))
			for _, entry := range rawEntries {
				entry = strings.TrimSpace(entry)
				entry = strings.Trim(entry, `"`)
				entry = strings.ReplaceAll(entry, `\"`, `"`)
				if entry != "" {
					clean = append(clean, entry)
				}
			}
			*sa = StringArray(clean)
		}
		return nil
	case []byte:
		if len(v) == 0 {
			*sa = StringArray{}
			return nil
		}
		return sa.Scan(string(v))
	default:
		return errors.New("cannot scan into StringArray")
	}
}

// Contains reports whether the array holds the given value.
func (sa StringArray) Contains(value string) bool {
	for _, s := range sa {
		if s == value {
			return true
		}
	}
	return false
}

// ToSlice returns a copy of the underlying slice.
func (sa StringArray) ToSlice() []string {
	if len(sa) == 0 {
		return []string{}
	}
	out := make([]string, len(sa))
	copy(out, sa)
	return out
}

// JSON is a generic JSON field type
type JSON []byte

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = JSON(v)
		return nil
	case string:
		*j = JSON(v)
		return nil
	default:
		return errors.New("cannot scan into JSON")
	}
}

// MarshalJSON returns the raw JSON bytes.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the raw JSON bytes.
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("models.JSON: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// AssignedCampaignIDs returns the union of all clients' campaign assignments.
func AssignedCampaignIDs(clients []Client) map[string]bool {
	assigned := make(map[string]bool)
	for _, client := range clients {
		for _, id := range client.CampaignIDs {
			assigned[id] = true
		}
	}
	return assigned
}

// FirstOwner returns the first client whose assignment contains campaignID.
func FirstOwner(clients []Client, campaignID string) *Client {
	for i := range clients {
		if clients[i].CampaignIDs.Contains(campaignID) {
			return &clients[i]
		}
	}
	return nil
}
