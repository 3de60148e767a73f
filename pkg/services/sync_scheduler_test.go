package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSync struct {
	calls   int32
	block   chan struct{}
	err     error
	sawDead bool
}

func (m *mockSync) SyncDefaultRoles(ctx context.Context) (*SyncResult, error) {
	return &SyncResult{}, nil
}

func (m *mockSync) SyncBoard(ctx context.Context, projectID, boardID string) (*SyncResult, error) {
	return &SyncResult{}, nil
}

func (m *mockSync) SyncAll(ctx context.Context) ([]*SyncResult, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.block != nil {
		<-m.block
	}
	_, m.sawDead = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return []*SyncResult{{Scope: SyncScopeGlobal, Created: 1}, {Scope: SyncScopeBoard, Skipped: true}}, nil
}

func TestSyncScheduler_RunOnceAppliesTimeout(t *testing.T) {
	m := &mockSync{}
	s := NewSyncScheduler(m, "@every 1h", time.Minute, zap.NewNop())

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.calls))
	assert.True(t, m.sawDead)
}

func TestSyncScheduler_SkipsOverlappingRuns(t *testing.T) {
	m := &mockSync{block: make(chan struct{})}
	s := NewSyncScheduler(m, "@every 1h", 0, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&m.calls) == 1 }, time.Second, time.Millisecond)

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.calls))

	close(m.block)
	<-done
}

func TestSyncScheduler_ErrorIsLogged(t *testing.T) {
	m := &mockSync{err: errors.New("db down")}
	s := NewSyncScheduler(m, "@every 1h", 0, zap.NewNop())
	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.calls))
}

func TestSyncScheduler_StartStop(t *testing.T) {
	m := &mockSync{}
	s := NewSyncScheduler(m, "* * * * * *", 0, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&m.calls) >= 1 }, 3*time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestSyncScheduler_InvalidSchedule(t *testing.T) {
	s := NewSyncScheduler(&mockSync{}, "not a schedule", 0, zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}
