package db

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"password masked", "postgres://app:s3cret@db:5432/recharge?sslmode=disable", "postgres://app:%2A%2A%2A%2A@db:5432/recharge?sslmode=disable"},
		{"no password", "postgres://app@db/recharge", "postgres://app@db/recharge"},
		{"no user", "postgres://db/recharge", "postgres://db/recharge"},
		{"invalid", "postgres://%zz", "(invalid DATABASE_URL)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactDSN(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "s3cret")
		})
	}
}

func TestOpen_emptyURL(t *testing.T) {
	_, err := Open(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is empty")
}

func TestMigrations_embedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrationsFS, "migrations/00001_create_admin_sessions.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "admin_sessions")
}
