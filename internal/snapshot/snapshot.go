package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/store"
)

// SchemaVersion is stamped into every saved envelope. Loading rejects
// envelopes written by a newer schema.
const SchemaVersion = 1

const (
	KeyClients   = "maya_clients"
	KeyOrders    = "maya_orders"
	KeyInventory = "maya_inventory"
	KeyPrices    = "maya_prices"
)

// Store is a key/value mirror for serialized application state. Load returns
// found=false when the key has never been saved.
type Store interface {
	Load(ctx context.Context, key string) (payload []byte, found bool, err error)
	Save(ctx context.Context, key string, payload []byte) error
}

type Noop struct{}

func (Noop) Load(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Noop) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	SavedAt       time.Time       `json:"saved_at"`
	Data          json.RawMessage `json:"data"`
}

// Manager mirrors the repository state into a snapshot store, one key per
// collection, so a restart resumes where the last command left off.
type Manager struct {
	store Store
	repo  store.Repository
}

func NewManager(st Store, repo store.Repository) *Manager {
	return &Manager{store: st, repo: repo}
}

// Restore loads whatever keys exist and applies them to the repository.
// Missing keys leave the seeded data in place.
func (m *Manager) Restore(ctx context.Context) error {
	var snap domain.StateSnapshot

	if err := loadInto(ctx, m.store, KeyClients, &snap.Clients); err != nil {
		return err
	}
	if err := loadInto(ctx, m.store, KeyOrders, &snap.Orders); err != nil {
		return err
	}
	if err := loadInto(ctx, m.store, KeyInventory, &snap.Inventory); err != nil {
		return err
	}
	if err := loadInto(ctx, m.store, KeyPrices, &snap.Prices); err != nil {
		return err
	}

	if snap.Clients == nil && snap.Orders == nil && snap.Inventory == nil && snap.Prices.General == nil {
		log.Println("[snapshot] no saved state found, starting from seed data")
		return nil
	}
	return m.repo.Restore(ctx, snap)
}

// Persist writes the current repository state to all four keys.
func (m *Manager) Persist(ctx context.Context) error {
	snap, err := m.repo.Snapshot(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, part := range []struct {
		key   string
		value any
	}{
		{KeyClients, snap.Clients},
		{KeyOrders, snap.Orders},
		{KeyInventory, snap.Inventory},
		{KeyPrices, snap.Prices},
	} {
		payload, err := encodeEnvelope(part.value, now)
		if err != nil {
			return fmt.Errorf("encode %s: %w", part.key, err)
		}
		if err := m.store.Save(ctx, part.key, payload); err != nil {
			return fmt.Errorf("save %s: %w", part.key, err)
		}
	}
	return nil
}

func encodeEnvelope(value any, savedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       savedAt,
		Data:          data,
	})
}

func loadInto(ctx context.Context, st Store, key string, target any) error {
	payload, found, err := st.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode %s envelope: %w", key, err)
	}
	if env.SchemaVersion > SchemaVersion {
		return fmt.Errorf("decode %s: schema version %d is newer than supported %d", key, env.SchemaVersion, SchemaVersion)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("decode %s data: %w", key, err)
	}
	return nil
}
