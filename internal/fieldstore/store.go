// Package fieldstore persists the serialized value of host form fields.
//
// The editor treats the field value as one opaque string: it is read once when
// a session opens and written back every time the session flushes its output.
// Three backends are provided: PostgreSQL for deployments, SQLite for a single
// machine, and an in-memory map for tests and demos.
package fieldstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/changeorders/internal/config"
)

// MaxFieldIDLength bounds field ids so they fit comfortably in a URL and an
// index.
const MaxFieldIDLength = 128

// ErrInvalidFieldID is returned for empty, oversized or malformed ids.
var ErrInvalidFieldID = errors.New("invalid field id")

// Field describes one stored field value.
type Field struct {
	ID        string    `json:"id"`
	Bytes     int       `json:"bytes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes field values.
type Store interface {
	// Load returns the stored value. found is false when the field has never
	// been saved; that is not an error.
	Load(ctx context.Context, fieldID string) (value string, found bool, err error)

	// Save replaces the stored value.
	Save(ctx context.Context, fieldID, value string) error

	// List returns every stored field ordered by id.
	List(ctx context.Context) ([]Field, error)

	Close() error
}

// ValidateFieldID checks that id is usable as a key and a URL segment:
// letters, digits, '-', '_' and '.', at most MaxFieldIDLength bytes.
func ValidateFieldID(id string) error {
	if id == "" || len(id) > MaxFieldIDLength {
		return fmt.Errorf("%w: length %d", ErrInvalidFieldID, len(id))
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidFieldID, id)
		}
	}
	return nil
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		return OpenPostgres(ctx, cfg)
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
