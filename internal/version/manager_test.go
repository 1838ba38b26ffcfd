package version

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"fablecraft/loom/internal/analysis"
	"fablecraft/loom/internal/manuscript"
)

func testSnapshot() *manuscript.Snapshot {
	chapters := []*manuscript.Chapter{
		{ID: "ch1", Title: "One", Metadata: manuscript.Metadata{TensionLevel: 2},
			Dependencies: manuscript.Dependencies{Introduces: []string{"Sarah"}}},
		{ID: "ch2", Title: "Two", Metadata: manuscript.Metadata{POV: "Marcus", TensionLevel: 5},
			Dependencies: manuscript.Dependencies{Introduces: []string{"Marcus"}, RequiredKnowledge: []string{"Sarah"}}},
		{ID: "ch3", Title: "Three", Metadata: manuscript.Metadata{TensionLevel: 7},
			Dependencies: manuscript.Dependencies{RequiredKnowledge: []string{"Sarah", "Marcus"}}},
	}
	return manuscript.NewSnapshot(chapters, nil, nil)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testSnapshot(), analysis.DefaultConfig())
	m.logf = func(format string, args ...any) {} // keep test output quiet
	return m
}

func TestManager_BaseVersion(t *testing.T) {
	m := newTestManager(t)
	base := m.BaseVersion()
	if !base.IsBase {
		t.Error("base version must be marked as base")
	}
	want := []string{"ch1", "ch2", "ch3"}
	if !reflect.DeepEqual(base.ChapterOrder, want) {
		t.Errorf("base order should be the authored order, got %v", base.ChapterOrder)
	}
	if m.CurrentVersion().ID != base.ID {
		t.Error("a fresh manager's current version is the base")
	}
}

func TestManager_CreateAndSwitch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	v, err := m.CreateVersion(ctx, "Draft 2", "experiment")
	if err != nil {
		t.Fatal(err)
	}
	if m.CurrentVersion().ID != v.ID {
		t.Error("create should switch current to the new version")
	}
	if v.ParentID != m.BaseVersion().ID {
		t.Error("new version should record its parent")
	}

	base := m.BaseVersion()
	if _, err := m.SwitchVersion(ctx, base.ID); err != nil {
		t.Fatalf("switching to a known id should work: %v", err)
	}
	if m.CurrentVersion().ID != base.ID {
		t.Error("switch did not move the current pointer")
	}
}

func TestManager_SwitchUnknownVersion(t *testing.T) {
	m := newTestManager(t)
	before := m.CurrentVersion().ID

	var notFound *VersionNotFoundError
	_, err := m.SwitchVersion(context.Background(), "no-such-version")
	if !errors.As(err, &notFound) {
		t.Fatalf("expected VersionNotFoundError, got %v", err)
	}
	if m.CurrentVersion().ID != before {
		t.Error("failed switch must not move the current pointer (no base fallback)")
	}
}

func TestManager_PreviewThenCancelIsUnchanged(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	before := m.CurrentVersion()

	checks, err := m.PreviewReordering(ctx, []string{"ch2", "ch1", "ch3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) == 0 {
		t.Error("ch2 before ch1 should produce diagnostics")
	}
	if err := m.CancelReordering(ctx); err != nil {
		t.Fatal(err)
	}

	after := m.CurrentVersion()
	if !reflect.DeepEqual(before.ChapterOrder, after.ChapterOrder) {
		t.Errorf("cancel must leave the order untouched: %v vs %v", before.ChapterOrder, after.ChapterOrder)
	}
	if len(after.Changes) != len(before.Changes) {
		t.Error("cancel must not append change entries")
	}
}

func TestManager_ApplyRecordsChanges(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	candidate := []string{"ch2", "ch1", "ch3"}
	if _, err := m.PreviewReordering(ctx, candidate); err != nil {
		t.Fatal(err)
	}
	v, err := m.ApplyReordering(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v.ChapterOrder, candidate) {
		t.Errorf("apply should commit the previewed order, got %v", v.ChapterOrder)
	}
	// ch1 and ch2 swapped, ch3 stayed: exactly one entry per moved chapter
	if len(v.Changes) != 2 {
		t.Fatalf("expected 2 change entries, got %d: %+v", len(v.Changes), v.Changes)
	}
	for _, c := range v.Changes {
		if c.Type != ChangeReorder {
			t.Errorf("unexpected change type %q", c.Type)
		}
		if c.ChapterID == "ch3" {
			t.Error("unmoved chapters must not get change entries")
		}
	}
}

func TestManager_ApplyWithoutPreview(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.ApplyReordering(context.Background()); !errors.Is(err, ErrNoPreview) {
		t.Errorf("expected ErrNoPreview, got %v", err)
	}
}

func TestManager_SwitchBlockedWhilePreviewing(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if _, err := m.PreviewReordering(ctx, []string{"ch3", "ch2", "ch1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SwitchVersion(ctx, m.BaseVersion().ID); !errors.Is(err, ErrPreviewInProgress) {
		t.Errorf("switch during preview should fail, got %v", err)
	}
	if err := m.CancelReordering(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SwitchVersion(ctx, m.BaseVersion().ID); err != nil {
		t.Errorf("switch after cancel should work, got %v", err)
	}
}

func TestManager_PreviewRejectsMalformedOrder(t *testing.T) {
	m := newTestManager(t)
	var integrity *manuscript.DataIntegrityError
	_, err := m.PreviewReordering(context.Background(), []string{"ch1", "ghost", "ch3"})
	if !errors.As(err, &integrity) {
		t.Fatalf("corrupt candidate order must surface as DataIntegrityError, got %v", err)
	}
	// A rejected preview leaves the manager Idle
	if _, err := m.CreateVersion(context.Background(), "v", ""); err != nil {
		t.Errorf("manager should still be idle, got %v", err)
	}
}

func TestManager_LatestPreviewWins(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// Simulate a fast drag: many overlapping previews, the last requested
	// candidate must be the one apply commits
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.PreviewReordering(ctx, []string{"ch3", "ch1", "ch2"})
		}()
	}
	wg.Wait()

	final := []string{"ch1", "ch3", "ch2"}
	if _, err := m.PreviewReordering(ctx, final); err != nil {
		t.Fatal(err)
	}
	if diags, ok := m.PreviewDiagnostics(); !ok || diags == nil {
		t.Error("latest preview diagnostics should be authoritative")
	}
	v, err := m.ApplyReordering(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v.ChapterOrder, final) {
		t.Errorf("apply must commit the latest requested preview, got %v", v.ChapterOrder)
	}
}

func TestManager_PreviewPanicDegrades(t *testing.T) {
	m := newTestManager(t)
	// Poison the snapshot so analysis panics on a nil chapter; ValidateOrder
	// still passes because the id map is intact
	m.snap.Chapters["ch2"] = nil

	warned := false
	m.logf = func(format string, args ...any) { warned = true }

	checks, err := m.PreviewReordering(context.Background(), []string{"ch1", "ch2", "ch3"})
	if err != nil {
		t.Fatalf("advisory analysis failures must not error the preview, got %v", err)
	}
	if len(checks) != 0 {
		t.Errorf("degraded preview returns empty diagnostics, got %v", checks)
	}
	if !warned {
		t.Error("a degraded preview should log a warning")
	}
}

func TestRestore(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if _, err := m.CreateVersion(ctx, "Draft 2", ""); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(testSnapshot(), nil, m.Versions(), m.CurrentVersion().ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.CurrentVersion().ID != m.CurrentVersion().ID {
		t.Error("restore should keep the current pointer")
	}
	if restored.BaseVersion().ID != m.BaseVersion().ID {
		t.Error("restore should keep the base version")
	}

	if _, err := Restore(testSnapshot(), nil, m.Versions(), "missing"); err == nil {
		t.Error("restoring with an unknown current id should fail")
	}
	if _, err := Restore(testSnapshot(), nil, nil, ""); err == nil {
		t.Error("restoring with no base version should fail")
	}
}
