package spend

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPricing(t *testing.T) {
	pricing := Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}

	assert.InDelta(t, 0.15+1.2, pricing.Cost(1_000_000, 2_000_000), 1e-9)

	usage := pricing.Usage(1000, 500)
	assert.Equal(t, 1000, usage.PromptTokens)
	assert.InDelta(t, 0.00015+0.0003, usage.EstimatedCostUSD, 1e-12)
}

func TestMonth(t *testing.T) {
	// 23:30 on Jan 31 in UTC-5 is already February in UTC.
	local := time.Date(2026, time.January, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	assert.Equal(t, "2026-02", Month(local))
	assert.Equal(t, "roadbook:spend:user-1:2026-02", ledgerKey("user-1", local))
}

func ledgerContract(t *testing.T, ledger Ledger) {
	t.Helper()

	ctx := context.Background()
	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)

	total, err := ledger.MonthToDate(ctx, "user-1", march)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, ledger.Record(ctx, "user-1", march, 0.25))
	require.NoError(t, ledger.Record(ctx, "user-1", march, 0.5))
	require.NoError(t, ledger.Record(ctx, "user-2", march, 3))

	total, err = ledger.MonthToDate(ctx, "user-1", march)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, total, 1e-9)

	total, err = ledger.MonthToDate(ctx, "user-1", april)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryLedger(t *testing.T) {
	ledgerContract(t, NewMemoryLedger())
}

func TestMemoryLedger_ConcurrentRecords(t *testing.T) {
	ledger := NewMemoryLedger()
	now := time.Now()

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			_ = ledger.Record(context.Background(), "user-1", now, 0.01)
		}()
	}

	wg.Wait()

	total, err := ledger.MonthToDate(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, total, 1e-9)
}

func TestRedisLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ledger, err := NewRedisLedger(ctx, logger, "redis://"+endpoint+"/0")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, ledger.Close())
	}()

	ledgerContract(t, ledger)

	ttl, err := ledger.client.TTL(ctx, ledgerKey("user-1", time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*24*time.Hour)
}
