// Package settings manages a reusable node connection profile persisted
// to disk: broker host/port, last node id, retry/backoff tuning, eviction
// grace, and delta-sync tolerance (the ambient CLI/profile layer around
// sds.NodeConfig, not part of the sync engine itself).
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultBrokerPort is used when a profile doesn't override it.
const DefaultBrokerPort = 1883

// Profile holds a reusable node connection profile. BrokerPasswordHash
// caches a bcrypt verifier of the broker password, never the plaintext —
// callers that need the actual broker credential still pass it in
// separately at connect time; the profile only lets a CLI confirm "is this
// the password I already set up" without writing it to disk in the clear.
type Profile struct {
	NodeID             string  `yaml:"node_id,omitempty"`
	BrokerHost         string  `yaml:"broker_host,omitempty"`
	BrokerPort         int     `yaml:"broker_port,omitempty"`
	BrokerUsername     string  `yaml:"broker_username,omitempty"`
	BrokerPasswordHash string  `yaml:"broker_password_hash,omitempty"`
	RetryCount         int     `yaml:"retry_count,omitempty"`
	RetryBaseDelayMs   int     `yaml:"retry_base_delay_ms,omitempty"`
	MaxRetryDelayMs    int     `yaml:"max_retry_delay_ms,omitempty"`
	EvictionGraceMs    int     `yaml:"eviction_grace_ms,omitempty"`
	DeltaSyncEnabled   bool    `yaml:"delta_sync_enabled,omitempty"`
	FloatTolerance     float32 `yaml:"float_tolerance,omitempty"`
}

const (
	// DefaultRetryCount is the default connect-retry attempt count.
	DefaultRetryCount = 5
	// DefaultRetryBaseDelayMs is the default first-retry delay.
	DefaultRetryBaseDelayMs = 500
	// DefaultMaxRetryDelayMs caps exponential backoff (SPEC_FULL open
	// question 3: capped at 30s).
	DefaultMaxRetryDelayMs = 30000
	// DefaultFloatTolerance is the default delta-sync float comparison
	// tolerance (§4.7 step 2).
	DefaultFloatTolerance = 0.001
)

// DefaultProfilePath returns the default path for the connection profile.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/sds_profile.yaml"
	}
	return filepath.Join(home, ".sds", "profile.yaml")
}

// Load reads the profile from the default location.
func Load() (*Profile, error) {
	return LoadFrom(DefaultProfilePath())
}

// LoadFrom reads a profile from a specific path. A missing file returns an
// empty Profile (matching a brand-new node with no saved connection
// history), not an error.
func LoadFrom(path string) (*Profile, error) {
	p := &Profile{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("settings: parsing %s: %w", path, err)
	}
	return p, nil
}

// Save writes the profile to the default location.
func (p *Profile) Save() error {
	return p.SaveTo(DefaultProfilePath())
}

// SaveTo writes the profile to a specific path.
func (p *Profile) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// SetBrokerPassword bcrypt-hashes password and stores the verifier —
// the plaintext is never written to disk.
func (p *Profile) SetBrokerPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("settings: hashing broker password: %w", err)
	}
	p.BrokerPasswordHash = string(hash)
	return nil
}

// VerifyBrokerPassword reports whether password matches the stored
// verifier. Returns false (not an error) when no verifier has been set.
func (p *Profile) VerifyBrokerPassword(password string) bool {
	if p.BrokerPasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.BrokerPasswordHash), []byte(password)) == nil
}

// GetBrokerPort returns the broker port with a fallback default.
func (p *Profile) GetBrokerPort() int {
	if p.BrokerPort > 0 {
		return p.BrokerPort
	}
	return DefaultBrokerPort
}

// GetRetryCount returns the connect-retry count with a fallback default.
func (p *Profile) GetRetryCount() int {
	if p.RetryCount > 0 {
		return p.RetryCount
	}
	return DefaultRetryCount
}

// GetRetryBaseDelayMs returns the first-retry delay with a fallback default.
func (p *Profile) GetRetryBaseDelayMs() int {
	if p.RetryBaseDelayMs > 0 {
		return p.RetryBaseDelayMs
	}
	return DefaultRetryBaseDelayMs
}

// GetMaxRetryDelayMs returns the backoff cap with a fallback default.
func (p *Profile) GetMaxRetryDelayMs() int {
	if p.MaxRetryDelayMs > 0 {
		return p.MaxRetryDelayMs
	}
	return DefaultMaxRetryDelayMs
}

// GetFloatTolerance returns the delta-sync float tolerance with a
// fallback default.
func (p *Profile) GetFloatTolerance() float32 {
	if p.FloatTolerance > 0 {
		return p.FloatTolerance
	}
	return DefaultFloatTolerance
}

// Clear resets the profile to defaults.
func (p *Profile) Clear() {
	*p = Profile{}
}
