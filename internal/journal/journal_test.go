package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"archiver/internal/journal"
	"archiver/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	err := j.Record(ctx,
		journal.Entry{CycleID: "c1", Path: "/in/a.jpg", Type: "Image", Outcome: "moved", Dest: "/out/a.jpg", Recorded: base},
		journal.Entry{CycleID: "c1", Path: "/in/b.zip", Type: "Archive", Outcome: "skipped", Reason: "empty_archive", Recorded: base.Add(500 * time.Millisecond)},
		journal.Entry{CycleID: "c2", Path: "/in/c.pdf", Type: "PDF", Outcome: "failed", Error: "boom", Recorded: base.Add(time.Second)},
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	recent, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	if recent[0].Path != "/in/c.pdf" || recent[0].Error != "boom" {
		t.Fatalf("newest entry = %+v", recent[0])
	}
	if recent[1].Reason != "empty_archive" || recent[1].Dest != "" {
		t.Fatalf("second entry = %+v", recent[1])
	}
	if !recent[1].Recorded.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("recorded = %s", recent[1].Recorded)
	}
}

func TestStatsAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-100 * 24 * time.Hour)
	if err := j.Record(ctx,
		journal.Entry{CycleID: "old", Path: "/in/a", Outcome: "moved", Recorded: old},
		journal.Entry{CycleID: "new", Path: "/in/b", Outcome: "moved"},
		journal.Entry{CycleID: "new", Path: "/in/c", Outcome: "extracted"},
	); err != nil {
		t.Fatal(err)
	}

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["moved"] != 2 || stats["extracted"] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	removed, err := j.Prune(ctx, time.Now().Add(-90*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("pruned %d, want 1", removed)
	}
	stats, err = j.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["moved"] != 1 {
		t.Fatalf("stats after prune = %v", stats)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", cfg.Journal.Path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	_, err = journal.Open(cfg)
	if !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestRecordNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)
	if err := j.Record(context.Background()); err != nil {
		t.Fatalf("Record with no entries: %v", err)
	}
}
