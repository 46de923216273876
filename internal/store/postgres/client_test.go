package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/feedconv?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "feedconv", User: "u", Password: "p"}))
	assert.Equal(t, "postgres://u:p@db:6432/feedconv?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6432, Database: "feedconv", User: "u", Password: "p", SSLMode: "require"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"001_feeds.sql", "002_conversions.sql"}, names)
}

func TestRouteHelpers(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, routeStrings([]domain.AssetCode{"A", "B", "C"}))
	assert.Equal(t, []string{}, routeStrings(nil))

	assert.Nil(t, nullString(""))
	require.NotNil(t, nullString("x"))
	assert.Equal(t, "x", *nullString("x"))
}
