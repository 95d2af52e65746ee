package api

import (
	"github.com/craftwatch/core/monitor"
)

// Stats is a snapshot of host and server process resource usage.
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`

	MemTotal   uint64  `json:"mem_total_bytes"`
	MemUsed    uint64  `json:"mem_used_bytes"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotal   uint64  `json:"disk_total_bytes"`
	DiskUsed    uint64  `json:"disk_used_bytes"`
	DiskPercent float64 `json:"disk_percent"`

	Process *ProcessStats `json:"process,omitempty"`
}

// ProcessStats is resource usage of the server process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemRSS     uint64  `json:"mem_rss_bytes"`
}

// Unmarshal converts a monitor snapshot to its API representation.
func (s *Stats) Unmarshal(stats monitor.Stats) {
	s.CPUPercent = stats.CPUPercent
	s.MemTotal = stats.MemTotal
	s.MemUsed = stats.MemUsed
	s.MemPercent = stats.MemPercent
	s.DiskTotal = stats.DiskTotal
	s.DiskUsed = stats.DiskUsed
	s.DiskPercent = stats.DiskPercent

	if stats.Process != nil {
		s.Process = &ProcessStats{
			PID:        stats.Process.PID,
			CPUPercent: stats.Process.CPUPercent,
			MemRSS:     stats.Process.MemRSS,
		}
	}
}
