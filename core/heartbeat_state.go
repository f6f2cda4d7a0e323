package core

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DispatcherState keeps the blocking-task counters of this API instance and
// periodically publishes them as a heartbeat.
type DispatcherState struct {
	mu       sync.Mutex
	hb       InstanceHeartbeat
	interval time.Duration
}

// NewDispatcherState creates the state for one API process.
func NewDispatcherState(instanceID, hostname string, permits int, interval time.Duration) *DispatcherState {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now()
	return &DispatcherState{
		hb: InstanceHeartbeat{
			InstanceID: instanceID,
			Hostname:   hostname,
			PID:        os.Getpid(),
			Permits:    permits,
			Status:     "starting",
			StartedAt:  now,
			UpdatedAt:  now,
		},
		interval: interval,
	}
}

// Start publishes the heartbeat immediately and then every interval until ctx ends.
func (s *DispatcherState) Start(ctx context.Context, client RedisClientRaw, logger *slog.Logger) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.flush(ctx, client, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx, client, logger)
		}
	}
}

// TaskStarted marks one more task as holding a permit.
func (s *DispatcherState) TaskStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hb.RunningCount++
	s.hb.Status = "busy"
}

// TaskFinished records completion; err is the task's failure, if any.
func (s *DispatcherState) TaskFinished(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hb.RunningCount > 0 {
		s.hb.RunningCount--
	}
	s.hb.ProcessedTotal++
	if err != nil {
		s.hb.FailedTotal++
		s.hb.LastError = err.Error()
	}
	if s.hb.RunningCount == 0 {
		s.hb.Status = "idle"
	}
}

// Snapshot returns a copy of the current heartbeat with runtime stats refreshed.
func (s *DispatcherState) Snapshot() InstanceHeartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hb.UptimeSeconds = int64(time.Since(s.hb.StartedAt).Seconds())
	s.hb.UpdateRuntimeStats()
	if s.hb.Status == "starting" {
		s.hb.Status = "idle"
	}
	return s.hb
}

func (s *DispatcherState) flush(ctx context.Context, client RedisClientRaw, logger *slog.Logger) {
	if err := SaveHeartbeat(ctx, client, s.Snapshot()); err != nil && ctx.Err() == nil {
		logger.Warn("heartbeat publish failed", "error", err)
	}
}
