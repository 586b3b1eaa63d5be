package spend

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps spend in process memory. It is meant for tests and single-process deployments.
type MemoryLedger struct {
	mu     sync.Mutex
	totals map[string]float64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{totals: make(map[string]float64)}
}

func (l *MemoryLedger) MonthToDate(_ context.Context, userID string, now time.Time) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totals[ledgerKey(userID, now)], nil
}

func (l *MemoryLedger) Record(_ context.Context, userID string, now time.Time, amountUSD float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totals[ledgerKey(userID, now)] += amountUSD

	return nil
}
