package samples

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/23skdu/longbow-cgen/internal/codegen"
)

func startService(t *testing.T, store Store) *FlightClient {
	t.Helper()
	srv, err := NewServer("localhost:0", store, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Shutdown)

	client := NewFlightClient(srv.Addr().String(), 5*time.Second)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFlightFetchSamples(t *testing.T) {
	store := NewMemoryStore()
	want := scenarioB()
	if err := store.PutSamples(context.Background(), "scenario_b", want); err != nil {
		t.Fatal(err)
	}
	client := startService(t, store)

	got, err := client.FetchSamples(context.Background(), "scenario_b")
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	sameRows(t, "x", got.Inputs, want.Inputs)
	sameRows(t, "y", got.Outputs, want.Outputs)

	if _, err := client.FetchSamples(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown sample set")
	}
}

func TestFlightPutSamples(t *testing.T) {
	store := NewMemoryStore()
	client := startService(t, store)
	ctx := context.Background()

	want := codegen.NewSampleSet([][]float32{{0.1, 0.2}, {0.3, 0.4}}, [][]float32{{1}, {0}})
	if err := client.PutSamples(ctx, "uploaded", want); err != nil {
		t.Fatalf("PutSamples: %v", err)
	}
	got, err := store.FetchSamples(ctx, "uploaded")
	if err != nil {
		t.Fatal(err)
	}
	sameRows(t, "x", got.Inputs, want.Inputs)
	sameRows(t, "y", got.Outputs, want.Outputs)

	roundTrip, err := client.FetchSamples(ctx, "uploaded")
	if err != nil {
		t.Fatal(err)
	}
	sameRows(t, "x", roundTrip.Inputs, want.Inputs)
}

func TestFlightInputsOnly(t *testing.T) {
	store := NewMemoryStore()
	client := startService(t, store)
	ctx := context.Background()

	in := Random(3, 4, 1)
	if err := client.PutSamples(ctx, "inputs", in); err != nil {
		t.Fatal(err)
	}
	got, err := client.FetchSamples(ctx, "inputs")
	if err != nil {
		t.Fatal(err)
	}
	if got.Outputs != nil {
		t.Errorf("expected no outputs, got %v", got.Outputs)
	}
	sameRows(t, "x", got.Inputs, in.Inputs)
}

func TestFlightNotConnected(t *testing.T) {
	client := NewFlightClient("localhost:1", 0)
	if _, err := client.FetchSamples(context.Background(), "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("FetchSamples: expected ErrNotConnected, got %v", err)
	}
	if err := client.PutSamples(context.Background(), "x", scenarioB()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PutSamples: expected ErrNotConnected, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close on unconnected client: %v", err)
	}
	if client.timeout != DefaultTimeout {
		t.Errorf("timeout = %v", client.timeout)
	}
}
