package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

func TestPublisherStoresCandidates(t *testing.T) {
	t.Parallel()

	pub := New()
	a := archiver.Candidate{URL: "https://a.example/", Origin: archiver.OriginEditData, OriginID: 1}
	b := archiver.Candidate{URL: "https://b.example/", Origin: archiver.OriginEditNote, OriginID: 2}
	if err := pub.Notify(context.Background(), a); err != nil {
		t.Fatalf("notify a: %v", err)
	}
	if err := pub.Notify(context.Background(), b); err != nil {
		t.Fatalf("notify b: %v", err)
	}

	got := pub.Candidates()
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("unexpected candidates: %+v", got)
	}

	got[0].URL = "modified"
	if pub.Candidates()[0].URL == "modified" {
		t.Fatal("expected Candidates() to return a copy")
	}
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	boom := errors.New("topic unavailable")
	pub.FailWith(boom)
	if err := pub.Notify(context.Background(), archiver.Candidate{}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	pub.FailWith(nil)
	if err := pub.Notify(context.Background(), archiver.Candidate{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(pub.Candidates()); n != 1 {
		t.Fatalf("expected 1 candidate, got %d", n)
	}
}
