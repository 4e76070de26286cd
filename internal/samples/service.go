package samples

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/longbow-cgen/internal/metrics"
)

// Service serves a Store over Arrow Flight: DoGet streams the set named by
// the ticket, DoPut stores the uploaded set under the first descriptor path
// element.
type Service struct {
	flight.BaseFlightServer
	store Store
	mem   memory.Allocator
}

// NewService serves store. A nil mem uses the Go allocator.
func NewService(store Store, mem memory.Allocator) *Service {
	return &Service{store: store, mem: allocator(mem)}
}

// NewServer returns an initialized Flight server for store listening on
// addr. The caller runs Serve and Shutdown.
func NewServer(addr string, store Store, mem memory.Allocator) (flight.Server, error) {
	srv := flight.NewServerWithMiddleware(nil)
	if err := srv.Init(addr); err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv.RegisterFlightService(NewService(store, mem))
	return srv, nil
}

func (s *Service) DoGet(tkt *flight.Ticket, fs flight.FlightService_DoGetServer) (err error) {
	defer func() { metrics.RecordFlightRequest("DoGet", err) }()
	name := string(tkt.GetTicket())
	set, err := s.store.FetchSamples(fs.Context(), name)
	if err != nil {
		return status.Errorf(codes.NotFound, "%v", err)
	}
	rec, err := NewRecord(s.mem, set)
	if err != nil {
		return status.Errorf(codes.FailedPrecondition, "sample set %q: %v", name, err)
	}
	defer rec.Release()

	w := flight.NewRecordWriter(fs, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.mem))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *Service) DoPut(stream flight.FlightService_DoPutServer) (err error) {
	defer func() { metrics.RecordFlightRequest("DoPut", err) }()
	rdr, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.mem))
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "open stream: %v", err)
	}
	defer rdr.Release()

	desc := rdr.LatestFlightDescriptor()
	if desc == nil || len(desc.GetPath()) == 0 {
		return status.Error(codes.InvalidArgument, "DoPut needs a path descriptor naming the sample set")
	}
	set, err := decode(rdr)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if err := s.store.PutSamples(stream.Context(), desc.GetPath()[0], set); err != nil {
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return stream.Send(&flight.PutResult{})
}
