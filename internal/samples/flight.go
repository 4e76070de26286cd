package samples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-cgen/internal/codegen"
)

// DefaultTimeout bounds a single Flight call when none is configured.
const DefaultTimeout = 30 * time.Second

// Fetcher is anything that can produce a named sample set.
type Fetcher interface {
	FetchSamples(ctx context.Context, name string) (codegen.SampleSet, error)
}

// Store is a Fetcher that also accepts uploads.
type Store interface {
	Fetcher
	PutSamples(ctx context.Context, name string, s codegen.SampleSet) error
}

// ErrNotConnected is returned by FlightClient calls made before Connect.
var ErrNotConnected = errors.New("flight client not connected, call Connect() first")

// FlightClient fetches sample sets from an Arrow Flight service. The ticket
// of a DoGet is the sample set name; DoPut uploads under a path descriptor.
type FlightClient struct {
	client  flight.Client
	addr    string
	timeout time.Duration
	mem     memory.Allocator
}

// NewFlightClient prepares a client for addr (host:port). A non-positive
// timeout selects DefaultTimeout.
func NewFlightClient(addr string, timeout time.Duration) *FlightClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FlightClient{addr: addr, timeout: timeout, mem: memory.DefaultAllocator}
}

// WithAllocator sets the allocator used to decode records.
func (fc *FlightClient) WithAllocator(mem memory.Allocator) *FlightClient {
	fc.mem = allocator(mem)
	return fc
}

func (fc *FlightClient) Addr() string { return fc.addr }

// Connect creates the gRPC channel. The channel dials lazily, so an
// unreachable service surfaces on the first call.
func (fc *FlightClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := flight.NewClientWithMiddleware(fc.addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create Flight client: %w", err)
	}
	fc.client = client
	return nil
}

// Close disconnects from the Flight service.
func (fc *FlightClient) Close() error {
	if fc.client != nil {
		err := fc.client.Close()
		fc.client = nil
		return err
	}
	return nil
}

// FetchSamples issues DoGet with ticket name and decodes the stream the way
// ReadIPC does.
func (fc *FlightClient) FetchSamples(ctx context.Context, name string) (codegen.SampleSet, error) {
	if fc.client == nil {
		return codegen.SampleSet{}, ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoGet(ctx, &flight.Ticket{Ticket: []byte(name)})
	if err != nil {
		return codegen.SampleSet{}, fmt.Errorf("DoGet %q: %w", name, err)
	}
	rdr, err := flight.NewRecordReader(stream, ipc.WithAllocator(fc.mem))
	if err != nil {
		return codegen.SampleSet{}, fmt.Errorf("DoGet %q: open stream: %w", name, err)
	}
	defer rdr.Release()

	s, err := decode(rdr)
	if err != nil {
		return codegen.SampleSet{}, fmt.Errorf("DoGet %q: %w", name, err)
	}
	return s, nil
}

// PutSamples uploads s under the descriptor path [name].
func (fc *FlightClient) PutSamples(ctx context.Context, name string, s codegen.SampleSet) error {
	if fc.client == nil {
		return ErrNotConnected
	}
	rec, err := NewRecord(fc.mem, s)
	if err != nil {
		return err
	}
	defer rec.Release()

	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("failed to create DoPut stream: %w", err)
	}
	w := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(fc.mem))
	w.SetFlightDescriptor(&flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{name}})
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send: %w", err)
	}
	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("DoPut %q: %w", name, err)
		}
	}
}
