package core

import (
	"context"
	"encoding/json"
	"runtime"
	"time"
)

const (
	InstanceHeartbeatPrefix = "accounts:instance:heartbeat:"
	InstanceHeartbeatTTL    = 45 * time.Second
)

// InstanceHeartbeatKey returns the Redis key for the given instance ID.
func InstanceHeartbeatKey(id string) string {
	return InstanceHeartbeatPrefix + id
}

// SaveHeartbeat stores heartbeat JSON with TTL.
func SaveHeartbeat(ctx context.Context, client RedisClientRaw, hb InstanceHeartbeat) error {
	hb.UpdatedAt = time.Now()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return client.Set(ctx, InstanceHeartbeatKey(hb.InstanceID), data, InstanceHeartbeatTTL).Err()
}

// InstanceHeartbeat is what each API process publishes about its blocking-task pool.
type InstanceHeartbeat struct {
	InstanceID     string    `json:"instance_id"`
	Hostname       string    `json:"hostname"`
	PID            int       `json:"pid"`
	Permits        int       `json:"permits"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	Status         string    `json:"status"` // idle|busy|starting
	RunningCount   int       `json:"running_count"`
	ProcessedTotal int64     `json:"processed_total"`
	FailedTotal    int64     `json:"failed_total"`
	LastError      string    `json:"last_error,omitempty"`
	MemoryRSSBytes uint64    `json:"memory_rss_bytes"`
	NumGoroutine   int       `json:"num_goroutine"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateRuntimeStats overwrites memory and goroutine counts with current values.
func (h *InstanceHeartbeat) UpdateRuntimeStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.MemoryRSSBytes = ms.Sys // approximation
	h.NumGoroutine = runtime.NumGoroutine()
}
