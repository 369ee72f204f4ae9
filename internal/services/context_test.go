package services

import (
	"context"
	"testing"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := WithJobID(context.Background(), "abc-123")
	id, ok := JobIDFromContext(ctx)
	if !ok || id != "abc-123" {
		t.Fatalf("got (%q, %v), want (abc-123, true)", id, ok)
	}
}

func TestEmptyAnnotationsAreNoops(t *testing.T) {
	base := context.Background()
	if WithJobID(base, "") != base {
		t.Fatal("empty job id should return the original context")
	}
	if WithStage(base, "") != base {
		t.Fatal("empty stage should return the original context")
	}
	if _, ok := StageFromContext(base); ok {
		t.Fatal("expected no stage on bare context")
	}
}
