// Package sysmetrics samples process CPU and memory usage for the stats
// endpoint.
package sysmetrics

import (
	"runtime"
	"sync"
	"syscall"
	"time"
)

// Process is one sample of process resource usage.
type Process struct {
	// CPUPercent is CPU time over wall time since the previous sample.
	// It can exceed 100 on multiple cores.
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryInuse int64   `json:"memory_inuse_bytes"`
	Goroutines  int     `json:"goroutines"`
	Uptime      string  `json:"uptime"`
}

// Sampler computes CPU usage as a delta between successive Sample calls.
// It is safe for concurrent use.
type Sampler struct {
	started time.Time

	mu      sync.Mutex
	wall    time.Time
	cpu     time.Duration
	lastPct float64
}

// NewSampler starts measuring from now.
func NewSampler() *Sampler {
	now := time.Now()
	return &Sampler{started: now, wall: now, cpu: cpuTime()}
}

// Sample returns current usage.
func (s *Sampler) Sample() Process {
	now := time.Now()
	cpu := cpuTime()

	s.mu.Lock()
	if wall := now.Sub(s.wall); wall > 0 {
		s.lastPct = float64(cpu-s.cpu) / float64(wall) * 100
		s.wall, s.cpu = now, cpu
	}
	pct := s.lastPct
	s.mu.Unlock()

	return Process{
		CPUPercent:  pct,
		MemoryInuse: memoryInuse(),
		Goroutines:  runtime.NumGoroutine(),
		Uptime:      now.Sub(s.started).Round(time.Second).String(),
	}
}

// memoryInuse is live heap spans plus goroutine stacks, excluding
// reserved but uncommitted address space.
func memoryInuse() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapInuse + m.StackInuse)
}

func cpuTime() time.Duration {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}
