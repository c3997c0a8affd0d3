// Package ingestionsource implements the ensure-credential policy that
// runs before every bulk ingestion: reuse a still-fresh delegation
// credential, refresh one that is expiring soon, or mint a new one.
package ingestionsource

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/catalog"
)

const (
	// MinHours is the minimum remaining lifetime a credential must have to
	// be reused instead of refreshed.
	MinHours = 12
	// DefaultHours is the lifetime granted to a freshly minted credential.
	DefaultHours = 24
)

// CredentialMinter abstracts delegation-credential issuance so this
// package stays storage-backend agnostic; go/gcs.GenerateContainerDelegationCredential
// satisfies the shape callers actually wire in.
type CredentialMinter func(ctx context.Context, containerURL string, ttl time.Duration) (string, *time.Time, error)

// Manager runs the three-step ensure algorithm from spec.md §4.8 against a
// catalog.Client.
type Manager struct {
	Catalog *catalog.Client
	Mint    CredentialMinter
	Now     func() time.Time

	// MinLifetime and DefaultLifetime are spec.md §4.8/§6's configurable
	// MIN_SAS_TOKEN_EXPIRATION_HOURS / DEFAULT_SAS_TOKEN_EXPIRATION_HOURS
	// thresholds. Zero means "use the package default" (MinHours/DefaultHours).
	MinLifetime     time.Duration
	DefaultLifetime time.Duration
}

// New builds a Manager with the package-default thresholds
// (MinHours/DefaultHours). now defaults to time.Now if nil. Use
// NewWithThresholds to wire the configurable MIN_SAS_TOKEN_EXPIRATION_HOURS
// / DEFAULT_SAS_TOKEN_EXPIRATION_HOURS values instead.
func New(client *catalog.Client, mint CredentialMinter, now func() time.Time) *Manager {
	return NewWithThresholds(client, mint, now, MinHours*time.Hour, DefaultHours*time.Hour)
}

// NewWithThresholds builds a Manager with explicit min/default credential
// lifetimes, letting callers wire spec.md §6's
// MIN_SAS_TOKEN_EXPIRATION_HOURS / DEFAULT_SAS_TOKEN_EXPIRATION_HOURS
// environment configuration through. A zero duration falls back to the
// package default for that threshold.
func NewWithThresholds(client *catalog.Client, mint CredentialMinter, now func() time.Time, minLifetime, defaultLifetime time.Duration) *Manager {
	if now == nil {
		now = time.Now
	}
	if minLifetime <= 0 {
		minLifetime = MinHours * time.Hour
	}
	if defaultLifetime <= 0 {
		defaultLifetime = DefaultHours * time.Hour
	}
	return &Manager{Catalog: client, Mint: mint, Now: now, MinLifetime: minLifetime, DefaultLifetime: defaultLifetime}
}

// Ensure guarantees an ingestion source with a non-expiring-soon
// credential exists for containerURL, creating or refreshing it as
// needed.
func (m *Manager) Ensure(ctx context.Context, containerURL string) error {
	sources, err := m.Catalog.ListIngestionSources(ctx)
	if err != nil {
		return fmt.Errorf("ingestionsource: list: %w", err)
	}

	minLifetime, defaultLifetime := m.thresholds()

	existing, ok := sources[containerURL]
	if !ok {
		cred, expiry, err := m.Mint(ctx, containerURL, defaultLifetime)
		if err != nil {
			return fmt.Errorf("ingestionsource: mint: %w", err)
		}
		_, err = m.Catalog.CreateIngestionSource(ctx, containerURL, cred)
		_ = expiry // the catalog records the expiration server-side from the credential itself
		if err != nil {
			return fmt.Errorf("ingestionsource: create: %w", err)
		}
		return nil
	}

	if existing.Expiration == nil {
		// Policy-based credential this gateway didn't mint; nothing to refresh.
		return nil
	}

	if existing.Expiration.After(m.Now().Add(minLifetime)) {
		return nil
	}

	cred, _, err := m.Mint(ctx, containerURL, defaultLifetime)
	if err != nil {
		return fmt.Errorf("ingestionsource: mint: %w", err)
	}
	if _, err := m.Catalog.UpdateIngestionSource(ctx, existing.ID, containerURL, cred); err != nil {
		return fmt.Errorf("ingestionsource: update: %w", err)
	}
	return nil
}

func (m *Manager) thresholds() (min, def time.Duration) {
	min, def = m.MinLifetime, m.DefaultLifetime
	if min <= 0 {
		min = MinHours * time.Hour
	}
	if def <= 0 {
		def = DefaultHours * time.Hour
	}
	return min, def
}
