package journal_test

import (
	"path/filepath"
	"testing"
	"time"

	"loudsync/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func floatPtr(v float64) *float64 { return &v }

func TestRunRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	started := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	run := journal.Run{
		ID:        "run-1",
		StartedAt: started,
		Mode:      "full",
		Preset:    "-16",
		TargetI:   -16.0,
		TargetTP:  -1.5,
		InputDir:  "/audio/in",
		OutputDir: "/audio/out",
	}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", started.Add(2*time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Mode != "full" || got.Preset != "-16" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(started.Add(2*time.Minute)) {
		t.Fatalf("FinishedAt = %v", got.FinishedAt)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		run := journal.Run{
			ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour),
			Mode: "measure", Preset: "-16", TargetI: -16, TargetTP: -1.5,
			InputDir: "/in", OutputDir: "/out",
		}
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun(%s): %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("unexpected ordering: %+v", runs)
	}
}

func TestFileRecordRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	run := journal.Run{
		ID: "run-1", StartedAt: time.Now(), Mode: "normalize", Preset: "-18",
		TargetI: -18, TargetTP: -1.5, InputDir: "/in", OutputDir: "/out",
	}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	records := []journal.FileRecord{
		{
			RunID:          "run-1",
			InputPath:      "/in/a.wav",
			OutputPath:     "/out/a.wav",
			Status:         journal.FileStatusSuccess,
			IntegratedLUFS: floatPtr(-12.84),
			LoudnessRange:  floatPtr(11.0),
			TruePeakDBTP:   floatPtr(1.28),
			Warnings:       []string{"overlap clamped", "fallback to one pass"},
		},
		{
			RunID:           "run-1",
			InputPath:       "/in/b.wav",
			Status:          journal.FileStatusFailed,
			Detail:          "no parsable loudness result",
			FallbackOnePass: true,
		},
		{
			RunID:     "run-1",
			InputPath: "/in/c.txt",
			Status:    journal.FileStatusSkipped,
			Detail:    "unsupported format",
		},
	}
	for _, record := range records {
		if err := store.RecordFile(ctx, record); err != nil {
			t.Fatalf("RecordFile(%s): %v", record.InputPath, err)
		}
	}

	got, err := store.FilesForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("FilesForRun: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	first := got[0]
	if first.Status != journal.FileStatusSuccess || first.OutputPath != "/out/a.wav" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.IntegratedLUFS == nil || *first.IntegratedLUFS != -12.84 {
		t.Fatalf("IntegratedLUFS = %v", first.IntegratedLUFS)
	}
	if len(first.Warnings) != 2 || first.Warnings[0] != "overlap clamped" {
		t.Fatalf("warnings = %v", first.Warnings)
	}

	second := got[1]
	if !second.FallbackOnePass {
		t.Fatal("fallback flag lost")
	}
	if second.IntegratedLUFS != nil {
		t.Fatalf("failed record should have nil stats, got %v", second.IntegratedLUFS)
	}
	if second.Detail != "no parsable loudness result" {
		t.Fatalf("detail = %q", second.Detail)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := journal.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
