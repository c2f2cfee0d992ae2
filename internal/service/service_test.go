package service_test

import (
	"context"
	"testing"
	"time"

	"exdform/internal/service"
)

// ─────────────────────────────────────────────────────────────
// ExportGuard tests
// ─────────────────────────────────────────────────────────────

func TestExportGuard_Acquire(t *testing.T) {
	var g service.ExportGuard

	if !g.Acquire("a.csv") {
		t.Fatal("expected first Acquire to succeed")
	}
	if g.Acquire("a.csv") {
		t.Fatal("expected second Acquire for the same destination to fail")
	}
	if !g.Acquire("b.csv") {
		t.Fatal("expected Acquire for another destination to succeed")
	}
	if !g.Busy("a.csv") {
		t.Fatal("expected a.csv to be busy")
	}
	g.Release("a.csv")
	g.Release("b.csv")

	if g.Busy("a.csv") {
		t.Fatal("expected a.csv to be free after Release")
	}
	if !g.Acquire("a.csv") {
		t.Fatal("expected Acquire to succeed after Release")
	}
	g.Release("a.csv")
}

func TestExportGuard_Wait(t *testing.T) {
	var g service.ExportGuard

	if !g.Acquire("out.csv") {
		t.Fatal("expected Acquire to succeed")
	}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- g.Wait(ctx)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Release("out.csv")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait timed out")
	}
}

func TestExportGuard_WaitGivesUp(t *testing.T) {
	var g service.ExportGuard
	g.Acquire("stuck.csv")
	defer g.Release("stuck.csv")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); err == nil {
		t.Fatal("expected Wait to return the context error")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
}

func TestMockEmitter_LastEvent(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", "second")

	if m.Events[len(m.Events)-1].Event != "b" {
		t.Errorf("expected last event 'b', got %q", m.Events[len(m.Events)-1].Event)
	}
}

func TestMockEmitter_Names(t *testing.T) {
	m := &service.MockEmitter{}
	m.Emit(context.Background(), service.EventRecordSaved, map[string]any{"id": 1})
	m.Emit(context.Background(), service.EventStatus, "Record saved with ID 1")

	want := []string{service.EventRecordSaved, service.EventStatus}
	got := m.Names()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestEmitterFunc(t *testing.T) {
	var got string
	e := service.EmitterFunc(func(_ context.Context, event string, _ any) { got = event })
	e.Emit(context.Background(), service.EventStoreReset, nil)
	if got != service.EventStoreReset {
		t.Errorf("expected %q, got %q", service.EventStoreReset, got)
	}
}
