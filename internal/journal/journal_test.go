package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
)

func openSQLite(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := Open(context.Background(), config.JournalConfig{Driver: DriverSQLite, Path: path, BufferSize: 16})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j
}

func TestJournalRecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j := openSQLite(t, path)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store := escalation.NewStore(
		escalation.WithObserver(j),
		escalation.WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}),
	)

	id := store.Create(escalation.NewEscalation{
		OriginalMessage: "Sözleşme detaylarını konuşalım",
		Reason:          "Anahtar kelime tespiti (legal)",
		Category:        escalation.CategoryLegal,
		Source:          escalation.SourceKeyword,
	})
	store.LinkExternalRef(id, "1001")
	store.Resolve(id, "avukatımla görüşeceğim", "Sözleşmeyi avukatımla değerlendirip dönüş yapacağım.")

	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	hist, err := j.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	wantTypes := []escalation.EventType{escalation.EventCreated, escalation.EventLinked, escalation.EventResolved}
	if len(hist) != len(wantTypes) {
		t.Fatalf("history has %d entries, want %d", len(hist), len(wantTypes))
	}
	for i, e := range hist {
		if e.Type != wantTypes[i] {
			t.Errorf("entry %d type = %s, want %s", i, e.Type, wantTypes[i])
		}
	}
	last := hist[2]
	if last.Status != escalation.StatusResolved || last.ExternalRef != "1001" || last.Category != escalation.CategoryLegal {
		t.Errorf("resolved entry = %+v", last)
	}
	if last.Snapshot.Resolution == nil || last.Snapshot.Resolution.HumanText != "avukatımla görüşeceğim" {
		t.Errorf("snapshot resolution = %+v", last.Snapshot.Resolution)
	}

	recent, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Type != escalation.EventResolved || recent[1].Type != escalation.EventLinked {
		t.Errorf("recent = %+v", recent)
	}

	if err := j.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening runs migrations again without change and keeps the data.
	j2 := openSQLite(t, path)
	defer j2.Close(ctx)
	again, err := j2.History(ctx, id)
	if err != nil {
		t.Fatalf("History after reopen: %v", err)
	}
	if len(again) != 3 {
		t.Errorf("history after reopen = %d entries, want 3", len(again))
	}
}

func TestJournalClosedIgnoresEvents(t *testing.T) {
	ctx := context.Background()
	j := openSQLite(t, filepath.Join(t.TempDir(), "journal.db"))
	if err := j.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	j.OnEscalationEvent(escalation.Event{Type: escalation.EventCreated})
	if err := j.Flush(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after close = %v, want ErrClosed", err)
	}
	if err := j.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, config.JournalConfig{Driver: "mysql"}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("mysql err = %v, want ErrUnsupportedDriver", err)
	}
	if _, err := Open(ctx, config.JournalConfig{Driver: DriverPostgres}); err == nil {
		t.Error("postgres without DSN should fail")
	}
}
