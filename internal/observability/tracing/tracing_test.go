package tracing

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoOp(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, Options{
		ServiceName: "civictrack",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("expected no error without an endpoint, got %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected a shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}
