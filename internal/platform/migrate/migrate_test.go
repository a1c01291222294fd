package migrate

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreGooseAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(migrations, dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		body, err := fs.ReadFile(migrations, dir+"/"+entry.Name())
		require.NoError(t, err)
		require.Contains(t, string(body), "-- +goose Up", entry.Name())
		require.Contains(t, string(body), "-- +goose Down", entry.Name())
	}
}

func TestLedgerTableCarriesOrderingIndex(t *testing.T) {
	body, err := fs.ReadFile(migrations, dir+"/00003_inventory_ledger.sql")
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "ON ledger_entries (party_id, transaction_date, id)"))
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := Run(context.Background(), nil, "up")
	require.Error(t, err)
	require.False(t, supported("drop-everything"))
	require.True(t, supported("status"))
}
