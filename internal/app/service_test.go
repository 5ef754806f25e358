package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vtx-referral/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopErr  error
	stopped  atomic.Bool
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)
	return f.stopErr
}

func TestRunnerStopsAllWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "failing", startErr: errors.New("boom")}
	blocking := &fakeService{name: "blocking", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected start error, got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("every service should be stopped")
	}
}

func TestRunnerCancelIsClean(t *testing.T) {
	blocking := &fakeService{name: "blocking", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(blocking).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled run should return nil, got %v", err)
	}
}

func TestRunnerReportsStopErrors(t *testing.T) {
	stopErr := errors.New("stop failed")
	svc := &fakeService{name: "svc", block: true, stopErr: stopErr}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(svc).Run(ctx, time.Second, nil); !errors.Is(err, stopErr) {
		t.Fatalf("expected stop error, got %v", err)
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for empty runner")
	}
}

func TestListenAddrDefaultsPort(t *testing.T) {
	if got := listenAddr(config.ServerConfig{Host: "127.0.0.1"}); got != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %s", got)
	}
	if got := listenAddr(config.ServerConfig{Host: "0.0.0.0", Port: "9000"}); got != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr %s", got)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{
		"":       ModeAll,
		" API ":  ModeAPI,
		"worker": ModeWorker,
		"all":    ModeAll,
	}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseMode("cron"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

type orderedService struct {
	fakeService
	order *[]string
}

func (o *orderedService) Stop(ctx context.Context) error {
	*o.order = append(*o.order, o.name)
	return o.fakeService.Stop(ctx)
}

func TestRunnerStopsInReverseOrder(t *testing.T) {
	var order []string
	resources := &orderedService{fakeService: fakeService{name: "resources", block: true}, order: &order}
	httpSvc := &orderedService{fakeService: fakeService{name: "http", block: true}, order: &order}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(resources, httpSvc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "http" || order[1] != "resources" {
		t.Fatalf("unexpected stop order: %v", order)
	}
}

type closeCounter struct{ calls int }

func (c *closeCounter) Close() error {
	c.calls++
	return nil
}

func TestResourceServiceClosesOnStop(t *testing.T) {
	closer := &closeCounter{}
	svc := newResourceService(closer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start should return nil after cancel, got %v", err)
	}
	if err := svc.Stop(context.Background()); err != nil || closer.calls != 1 {
		t.Fatalf("stop should close once, calls=%d err=%v", closer.calls, err)
	}
}
