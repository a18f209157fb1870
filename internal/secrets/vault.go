package secrets

import (
	"encoding/base64"
	"strings"

	"adboard-backend/internal/errors"
	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
)

// Vault stores integration credentials reversibly obscured with base64.
//
// This is obfuscation, not encryption: anyone with database access can decode
// the values. Swapping in a real KMS-backed cipher is a known gap tracked for
// production hardening.
type Vault struct {
	store *store.Store
}

// NewVault creates a vault over the shared store.
func NewVault(s *store.Store) *Vault {
	return &Vault{store: s}
}

// Encode obscures a plaintext credential for storage.
func Encode(plaintext string) string {
	return base64.StdEncoding.EncodeToString([]byte(plaintext))
}

func decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrSecretDecode.Code, errors.ErrSecretDecode.Message)
	}
	return string(raw), nil
}

// Save replaces the active secret for a type. A newly saved credential is
// UNTESTED until an explicit test action promotes it to VALID or INVALID.
func (v *Vault) Save(secretType, plaintext string) models.IntegrationSecret {
	secret := models.IntegrationSecret{
		Type:   secretType,
		Value:  Encode(plaintext),
		Status: models.SecretStatusUntested,
	}
	v.store.SaveSecret(secret)
	saved, _ := v.store.Secret(secretType)
	return saved
}

// SetStatus updates the validity status of the stored secret for a type.
func (v *Vault) SetStatus(secretType, status string) {
	secret, ok := v.store.Secret(secretType)
	if !ok {
		return
	}
	secret.Status = status
	v.store.SaveSecret(secret)
}

// Reveal returns the decoded credential, or "" when the secret is missing or
// its stored value is malformed. Returning empty instead of an error keeps
// render paths from crashing; downstream API calls then fail as
// missing-credential, which is the intended degradation.
func (v *Vault) Reveal(secretType string) string {
	plaintext, err := v.RevealStrict(secretType)
	if err != nil {
		return ""
	}
	return plaintext
}

// RevealStrict returns the decoded credential or a typed error, for callers
// that surface credential problems explicitly (the admin test action).
func (v *Vault) RevealStrict(secretType string) (string, error) {
	secret, ok := v.store.Secret(secretType)
	if !ok || secret.Value == "" {
		return "", errors.ErrCredentialMissing
	}
	return decode(secret.Value)
}

// Get returns the stored secret record for a type, value still encoded.
func (v *Vault) Get(secretType string) (models.IntegrationSecret, bool) {
	return v.store.Secret(secretType)
}

// HasValid reports whether a VALID credential exists for the type.
func (v *Vault) HasValid(secretType string) bool {
	secret, ok := v.store.Secret(secretType)
	return ok && secret.Status == models.SecretStatusValid && secret.Value != ""
}

// Masked returns a display form of the stored credential: first and last two
// characters of the plaintext with the middle elided, or "" when unreadable.
func (v *Vault) Masked(secretType string) string {
	plaintext := v.Reveal(secretType)
	if plaintext == "" {
		return ""
	}
	if len(plaintext) <= 8 {
		return strings.Repeat("•", len(plaintext))
	}
	return plaintext[:2] + strings.Repeat("•", 6) + plaintext[len(plaintext)-2:]
}
