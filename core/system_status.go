package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// SystemStatus is the aggregated view served by GET /api/status.
type SystemStatus struct {
	Dispatcher InstanceHeartbeat `json:"dispatcher"`
	Instances  struct {
		Busy  int                 `json:"busy"`
		Total int                 `json:"total"`
		List  []InstanceHeartbeat `json:"list"`
	} `json:"instances"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus gathers the local dispatcher snapshot and, when status is
// non-nil, the heartbeats of every instance. Redis errors are ignored so the
// endpoint stays best-effort.
func CollectSystemStatus(ctx context.Context, state *DispatcherState, status *StatusService, startedAt time.Time) SystemStatus {
	var st SystemStatus

	if state != nil {
		st.Dispatcher = state.Snapshot()
	}

	st.Instances.List = []InstanceHeartbeat{}
	if status != nil {
		if instances, err := status.Instances(ctx); err == nil {
			st.Instances.List = instances
		}
	}
	st.Instances.Total = len(st.Instances.List)
	for _, in := range st.Instances.List {
		if in.Status == "busy" {
			st.Instances.Busy++
		}
	}

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
