package trace_test

import (
	"context"
	"testing"

	"github.com/bdobrica/kokoro/common/trace"
)

func TestGenerateID_Unique(t *testing.T) {
	a := trace.GenerateID()
	b := trace.GenerateID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Fatalf("expected unique IDs, got %q twice", a)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := trace.WithID(context.Background(), "x_test")
	if got := trace.FromContext(ctx); got != "x_test" {
		t.Errorf("expected %q, got %q", "x_test", got)
	}
	if got := trace.FromContext(context.Background()); got != "" {
		t.Errorf("expected empty ID on bare context, got %q", got)
	}
}
