package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

func TestSummaryPerMode(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	poisoned := model.Resolution{Hostname: "www.victim.local", ResolvedIP: "10.5.0.99", IsPoisoned: true}
	correct := model.Resolution{Hostname: "www.victim.local", ResolvedIP: "10.5.0.10", IsCorrect: true}
	for _, r := range []model.Resolution{poisoned, correct, poisoned, correct} {
		if err := store.Record(ctx, model.ModePlain, r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	store.ObserveResolution(model.ModeDNSSEC, correct)

	summaries, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected two modes, got %+v", summaries)
	}
	dnssec, plain := summaries[0], summaries[1]
	if dnssec.Mode != model.ModeDNSSEC || dnssec.Total != 1 || dnssec.Poisoned != 0 || dnssec.PoisonRate != 0 {
		t.Fatalf("unexpected dnssec summary: %+v", dnssec)
	}
	if plain.Mode != model.ModePlain || plain.Total != 4 || plain.Poisoned != 2 || plain.Correct != 2 || plain.PoisonRate != 0.5 {
		t.Fatalf("unexpected plain summary: %+v", plain)
	}
}

func TestSummaryEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	summaries, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no summaries, got %+v", summaries)
	}
}
