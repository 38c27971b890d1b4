// Package profiler - Stage timings and runtime statistics for batch diagnosis runs.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimeTracker tracks operation timing statistics over a sliding window of samples.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
	failures  int64
}

// OperationStats summarizes one named operation.
type OperationStats struct {
	Name     string        `json:"name"`
	Count    int64         `json:"count"`
	Failures int64         `json:"failures"`
	Mean     time.Duration `json:"mean"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
}

// Snapshot is a point-in-time report.
type Snapshot struct {
	Uptime     time.Duration    `json:"uptime"`
	Goroutines int              `json:"goroutines"`
	HeapAlloc  uint64           `json:"heapAlloc"`
	NumGC      uint32           `json:"numGC"`
	Operations []OperationStats `json:"operations"`
}

// Options configures the profiler.
type Options struct {
	// ReportInterval specifies how often Start logs a snapshot (default: 2s).
	ReportInterval time.Duration
	// MaxSamples bounds the window each mean is computed over (default: 600).
	MaxSamples int
}

// Profiler records how long pipeline stages take. It is safe for concurrent use.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int
	startTime      time.Time

	mu             sync.Mutex
	operationTimes map[string]*TimeTracker

	stop    context.CancelFunc
	stopped chan struct{}
}

// New creates a profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured Profiler instance
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call with the operation's error (nil on success) when it completes
func (p *Profiler) StartOperation(name string) func(err error) {
	start := time.Now()
	return func(err error) {
		p.record(name, time.Since(start), err != nil)
	}
}

func (p *Profiler) record(name string, d time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operationTimes[name]
	if !ok {
		t = &TimeTracker{minTime: d, maxTime: d}
		p.operationTimes[name] = t
	}

	t.durations = append(t.durations, d)
	t.totalTime += d
	if len(t.durations) > p.maxSamples {
		// Remove oldest sample
		t.totalTime -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	if failed {
		t.failures++
	}
	if d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
}

// Snapshot returns the current statistics, operations sorted by name.
func (p *Profiler) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		NumGC:      mem.NumGC,
	}

	p.mu.Lock()
	for name, t := range p.operationTimes {
		var mean time.Duration
		if n := len(t.durations); n > 0 {
			mean = t.totalTime / time.Duration(n)
		}
		s.Operations = append(s.Operations, OperationStats{
			Name:     name,
			Count:    t.count,
			Failures: t.failures,
			Mean:     mean,
			Min:      t.minTime,
			Max:      t.maxTime,
		})
	}
	p.mu.Unlock()

	sort.Slice(s.Operations, func(i, j int) bool { return s.Operations[i].Name < s.Operations[j].Name })
	return s
}

// Log writes a snapshot to logger at info level.
func (p *Profiler) Log(logger *zap.Logger) {
	s := p.Snapshot()
	fields := []zap.Field{
		zap.Duration("uptime", s.Uptime),
		zap.Int("goroutines", s.Goroutines),
		zap.Uint64("heap_alloc", s.HeapAlloc),
		zap.Uint32("num_gc", s.NumGC),
	}
	for _, op := range s.Operations {
		fields = append(fields, zap.Dict(op.Name,
			zap.Int64("count", op.Count),
			zap.Int64("failures", op.Failures),
			zap.Duration("mean", op.Mean),
			zap.Duration("min", op.Min),
			zap.Duration("max", op.Max)))
	}
	logger.Info("profile", fields...)
}

// Start logs a snapshot every report interval until Stop is called or ctx ends.
// Calling Start on a running profiler does nothing.
func (p *Profiler) Start(ctx context.Context, logger *zap.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.stop = cancel
	p.stopped = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Log(logger)
			}
		}
	}(p.stopped)
}

// Stop ends periodic reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel, done := p.stop, p.stopped
	p.stop, p.stopped = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
