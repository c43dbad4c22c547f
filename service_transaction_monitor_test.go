package adminkit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestTransactionMonitorCounts tests outcome classification
func TestTransactionMonitorCounts(t *testing.T) {
	tm := newTransactionMonitor()

	tm.recordTransaction(10*time.Millisecond, nil)
	tm.recordTransaction(20*time.Millisecond, ErrCannotManage)
	tm.recordTransaction(30*time.Millisecond, ErrInvalidRole)
	tm.recordTransaction(40*time.Millisecond, ErrVersionMismatch)
	tm.recordTransaction(50*time.Millisecond, errors.New("connection refused"))

	m := tm.getMetrics()
	assert.Equal(t, int64(5), m.TotalTransactions)
	assert.Equal(t, int64(3), m.SuccessfulTransactions)
	assert.Equal(t, int64(1), m.ConflictTransactions)
	assert.Equal(t, int64(1), m.FailedTransactions)
	assert.Equal(t, 30*time.Millisecond, m.AverageDuration)
	assert.Equal(t, 50*time.Millisecond, m.MaxDuration)
	assert.Equal(t, 10*time.Millisecond, m.MinDuration)

	before := m.LastReset
	tm.reset()
	m = tm.getMetrics()
	assert.Zero(t, m.TotalTransactions)
	assert.Zero(t, m.AverageDuration)
	assert.False(t, m.LastReset.Before(before))
}

// TestIsTransactionHealthy tests the health thresholds
func TestIsTransactionHealthy(t *testing.T) {
	service := NewService(NewMemoryStore())
	assert.True(t, service.IsTransactionHealthy())

	// few transactions are always healthy
	for i := 0; i < 5; i++ {
		service.txMonitor.recordTransaction(time.Millisecond, errors.New("boom"))
	}
	assert.True(t, service.IsTransactionHealthy())

	service.ResetTransactionMetrics()
	for i := 0; i < 20; i++ {
		service.txMonitor.recordTransaction(time.Millisecond, nil)
	}
	assert.True(t, service.IsTransactionHealthy())

	// denials and conflicts are not failures
	for i := 0; i < 10; i++ {
		service.txMonitor.recordTransaction(time.Millisecond, ErrVersionMismatch)
		service.txMonitor.recordTransaction(time.Millisecond, ErrPermissionDenied)
	}
	assert.True(t, service.IsTransactionHealthy())

	for i := 0; i < 5; i++ {
		service.txMonitor.recordTransaction(time.Millisecond, errors.New("boom"))
	}
	assert.False(t, service.IsTransactionHealthy())

	service.ResetTransactionMetrics()
	for i := 0; i < 10; i++ {
		service.txMonitor.recordTransaction(2*time.Second, nil)
	}
	assert.False(t, service.IsTransactionHealthy(), "slow transactions")
}

// TestServiceHealth tests store health reporting
func TestServiceHealth(t *testing.T) {
	f := newFixture(t)
	status := f.service.Health(f.ctx)
	assert.True(t, status.Healthy)
	assert.True(t, f.service.IsHealthy(f.ctx))
}
