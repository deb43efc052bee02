// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package testutil starts disposable infrastructure for integration tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/taibuivan/quill/internal/platform/migration"
)

// PostgresContainer is a migrated database running in docker.
type PostgresContainer struct {
	Pool *pgxpool.Pool
	DSN  string
}

// StartPostgres runs postgres:17-alpine with the full schema applied. The
// test is skipped under -short or when docker is unavailable. The container is
// removed when the test finishes.
func StartPostgres(t *testing.T) PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	if err := exec.Command("docker", "info", "--format", "{{.ServerVersion}}").Run(); err != nil {
		t.Skip("docker is not available")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("quill-test"),
		postgres.WithUsername("quill"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "postgres container failed to start")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.RunUp(dsn, logger), "schema migration failed")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return PostgresContainer{Pool: pool, DSN: dsn}
}

// WithTx runs testFunc inside a transaction that is always rolled back, so
// cases sharing one container never see each other's rows.
func WithTx(t *testing.T, pool *pgxpool.Pool, testFunc func(tx pgx.Tx)) {
	t.Helper()

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err)

	defer func() {
		require.NoError(t, tx.Rollback(context.Background()))
	}()

	testFunc(tx)
}
