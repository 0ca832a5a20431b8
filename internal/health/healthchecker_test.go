package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type flakyPinger struct{ fail atomic.Bool }

func (f *flakyPinger) HealthPing(ctx context.Context) error {
	if f.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func TestPingChecker_TracksPingerState(t *testing.T) {
	p := &flakyPinger{}
	c := NewPingChecker("store", p, zerolog.Nop(), time.Second)

	if c.IsHealthy() {
		t.Fatalf("checker should start unhealthy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx, 10*time.Millisecond)

	waitFor(t, func() bool { return c.IsHealthy() })

	p.fail.Store(true)
	waitFor(t, func() bool { return !c.IsHealthy() })
}

func TestServiceHealthChecker_AggregatesDeps(t *testing.T) {
	good := &flakyPinger{}
	bad := &flakyPinger{}
	bad.fail.Store(true)

	cg := NewPingChecker("good", good, zerolog.Nop(), time.Second)
	cb := NewPingChecker("bad", bad, zerolog.Nop(), time.Second)
	svc := NewServiceHealthChecker(zerolog.Nop(), cg, cb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cg.Start(ctx, 10*time.Millisecond)
	go cb.Start(ctx, 10*time.Millisecond)
	go svc.Start(ctx, 10*time.Millisecond)

	waitFor(t, func() bool { return cg.IsHealthy() })
	if svc.IsHealthy() {
		t.Fatalf("service must be DOWN while a dependency is unhealthy")
	}

	bad.fail.Store(false)
	waitFor(t, func() bool { return svc.IsHealthy() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
