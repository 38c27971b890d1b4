package profiler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecord(t *testing.T) {
	p := New(Options{MaxSamples: 2})
	p.record("analyze", 10*time.Millisecond, false)
	p.record("analyze", 30*time.Millisecond, true)
	p.record("analyze", 20*time.Millisecond, false)
	p.record("decode", time.Millisecond, false)

	s := p.Snapshot()
	require.Len(t, s.Operations, 2)

	a := s.Operations[0]
	assert.Equal(t, "analyze", a.Name)
	assert.Equal(t, int64(3), a.Count)
	assert.Equal(t, int64(1), a.Failures)
	// Only the last two samples are in the window.
	assert.Equal(t, 25*time.Millisecond, a.Mean)
	assert.Equal(t, 10*time.Millisecond, a.Min)
	assert.Equal(t, 30*time.Millisecond, a.Max)

	assert.Equal(t, "decode", s.Operations[1].Name)
	assert.Positive(t, s.Goroutines)
}

func TestStartOperation(t *testing.T) {
	p := New(Options{})
	done := p.StartOperation("classify")
	done(errors.New("boom"))

	s := p.Snapshot()
	require.Len(t, s.Operations, 1)
	assert.Equal(t, int64(1), s.Operations[0].Failures)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	core, logs := observer.New(zapcore.InfoLevel)
	p := New(Options{ReportInterval: 5 * time.Millisecond})
	p.StartOperation("analyze")(nil)

	p.Start(context.Background(), zap.New(core))
	p.Start(context.Background(), zap.New(core))
	assert.Eventually(t, func() bool { return logs.FilterMessage("profile").Len() > 0 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	entry := logs.FilterMessage("profile").All()[0]
	assert.Contains(t, entry.ContextMap(), "analyze")
}
