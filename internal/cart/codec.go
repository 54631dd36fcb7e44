package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/storefront/cartsync/internal/core/domain"
)

const (
	// StorageKey is the durable-storage key owned by the Store. The suffix is
	// the schema version; a new version gets a new key.
	StorageKey = "cart-storage/v1"

	schemaVersion = 1
)

var errSchemaVersion = errors.New("unsupported cart schema version")

type persistedCart struct {
	Version int            `json:"version"`
	State   persistedState `json:"state"`
}

type persistedState struct {
	Items []domain.CartLine `json:"items"`
}

func encode(lines []domain.CartLine) (string, error) {
	items := lines
	if items == nil {
		items = []domain.CartLine{}
	}
	b, err := json.Marshal(persistedCart{Version: schemaVersion, State: persistedState{Items: items}})
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

// decode parses a persisted cart. There is no migration: any version other
// than schemaVersion is rejected. Duplicate keys are folded together and
// invalid lines are dropped.
func decode(raw string) ([]domain.CartLine, error) {
	var pc persistedCart
	if err := json.Unmarshal([]byte(raw), &pc); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if pc.Version != schemaVersion {
		return nil, fmt.Errorf("decode cart: %w (%d)", errSchemaVersion, pc.Version)
	}

	lines := make([]domain.CartLine, 0, len(pc.State.Items))
	index := make(map[domain.LineKey]int, len(pc.State.Items))
	for _, l := range pc.State.Items {
		if !l.Valid() {
			continue
		}
		if i, ok := index[l.Key()]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		index[l.Key()] = len(lines)
		lines = append(lines, l)
	}
	return lines, nil
}
