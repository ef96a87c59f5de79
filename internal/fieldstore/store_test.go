package fieldstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/stretchr/testify/require"
)

// runStoreTests exercises the Store contract against one backend.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("missing field", func(t *testing.T) {
		s := open(t)
		value, found, err := s.Load(context.Background(), "nothing-here")
		require.NoError(t, err)
		require.False(t, found)
		require.Empty(t, value)
	})

	t.Run("save then load", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		value := `{"orders":[{"amount":100,"status":0}]}`

		require.NoError(t, s.Save(ctx, "job-1", value))
		got, found, err := s.Load(ctx, "job-1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, value, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "job-2", "first"))
		require.NoError(t, s.Save(ctx, "job-2", "second"))

		got, _, err := s.Load(ctx, "job-2")
		require.NoError(t, err)
		require.Equal(t, "second", got)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "blank", ""))
		got, found, err := s.Load(ctx, "blank")
		require.NoError(t, err)
		require.True(t, found)
		require.Empty(t, got)
	})

	t.Run("list", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "b.field", "xyz"))
		require.NoError(t, s.Save(ctx, "a_field", "é"))

		fields, err := s.List(ctx)
		require.NoError(t, err)

		var ids []string
		for _, f := range fields {
			if f.ID == "a_field" || f.ID == "b.field" {
				ids = append(ids, f.ID)
			}
			if f.ID == "a_field" {
				require.Equal(t, 2, f.Bytes)
				require.False(t, f.UpdatedAt.IsZero())
			}
		}
		require.Equal(t, []string{"a_field", "b.field"}, ids)
	})

	t.Run("invalid id", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, _, err := s.Load(ctx, "")
		require.ErrorIs(t, err, ErrInvalidFieldID)
		require.ErrorIs(t, s.Save(ctx, "has space", "x"), ErrInvalidFieldID)
	})
}

func TestMemory(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemory() })
}

func TestSQLite(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "fields.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fields.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "job-9", `{"orders":[]}`))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, found, err := s.Load(ctx, "job-9")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"orders":[]}`, got)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("FIELDSTORE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FIELDSTORE_TEST_DATABASE_URL not set")
	}

	runStoreTests(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := OpenPostgres(ctx, config.StoreConfig{URL: url, MaxConns: 2})
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE field_values`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "SQLite", Path: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
}

func TestValidateFieldID(t *testing.T) {
	valid := []string{"a", "job-42", "Project_7.change-orders", strings.Repeat("x", MaxFieldIDLength)}
	for _, id := range valid {
		require.NoError(t, ValidateFieldID(id), id)
	}

	invalid := []string{"", "a b", "a/b", "ü", strings.Repeat("x", MaxFieldIDLength+1)}
	for _, id := range invalid {
		require.ErrorIs(t, ValidateFieldID(id), ErrInvalidFieldID, id)
	}
}
