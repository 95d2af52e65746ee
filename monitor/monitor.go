// Package monitor samples host resource usage for the stats endpoint.
package monitor

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a point-in-time snapshot of host usage. Gauges that could not
// be sampled are left at their zero value.
type Stats struct {
	CPUPercent float64 // total load in percent, 0-100

	MemTotal   uint64 // bytes
	MemUsed    uint64 // bytes
	MemPercent float64

	DiskTotal   uint64 // bytes
	DiskUsed    uint64 // bytes
	DiskPercent float64

	Process *ProcessStats // nil if no process is observed
}

// ProcessStats is resource usage of a single observed process.
type ProcessStats struct {
	PID        int32
	CPUPercent float64
	MemRSS     uint64 // bytes
}

type Monitor interface {
	// Collect samples the host and, for a non-zero pid, the process with
	// that pid. Sampling is best effort and never returns an error.
	Collect(pid int32) Stats
}

// Config is the configuration for a monitor.
type Config struct {
	// DiskPath is the mount whose usage is reported. Defaults to "/".
	DiskPath string
}

type monitor struct {
	diskPath string
}

func New(config Config) Monitor {
	m := &monitor{
		diskPath: config.DiskPath,
	}

	if len(m.diskPath) == 0 {
		m.diskPath = "/"
	}

	return m
}

func (m *monitor) Collect(pid int32) Stats {
	s := Stats{}

	if percent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percent) == 1 {
		s.CPUPercent = percent[0]
	}

	if stat, err := mem.VirtualMemory(); err == nil {
		s.MemTotal = stat.Total
		s.MemUsed = stat.Used
		s.MemPercent = stat.UsedPercent
	}

	if stat, err := disk.Usage(m.diskPath); err == nil {
		s.DiskTotal = stat.Total
		s.DiskUsed = stat.Used
		s.DiskPercent = stat.UsedPercent
	}

	if pid > 0 {
		s.Process = collectProcess(pid)
	}

	return s
}

func collectProcess(pid int32) *ProcessStats {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}

	p := &ProcessStats{
		PID: pid,
	}

	if percent, err := proc.CPUPercent(); err == nil {
		p.CPUPercent = percent
	}

	if info, err := proc.MemoryInfo(); err == nil {
		p.MemRSS = info.RSS
	}

	return p
}
