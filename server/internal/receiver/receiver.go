package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/obsidianstack/singlestat/pkg/types"
	"github.com/obsidianstack/singlestat/server/internal/store"
)

// Evaluator is notified of every accepted snapshot. *alerts.Engine satisfies it.
type Evaluator interface {
	Evaluate(snap *types.Snapshot)
}

// Receiver implements valuesvc.ValueServiceServer.
// It validates each incoming Snapshot, stores it and hands it to the evaluator.
type Receiver struct {
	store *store.Store
	eval  Evaluator
}

// New creates a Receiver that writes accepted snapshots to st. eval may be nil.
func New(st *store.Store, eval Evaluator) *Receiver {
	return &Receiver{store: st, eval: eval}
}

// Push is the unary RPC handler called by singlestat-agent instances.
// Authentication is enforced by the gRPC server interceptor before this is called.
func (r *Receiver) Push(ctx context.Context, snap *types.Snapshot) (*types.PushResponse, error) {
	if snap.SourceID == "" {
		return nil, status.Error(codes.InvalidArgument, "source_id is required")
	}
	switch snap.State {
	case "ok", "no_data", "unknown":
	default:
		return nil, status.Errorf(codes.InvalidArgument, "state %q unknown", snap.State)
	}
	if len(snap.Points) > 0 && len(snap.Points) != len(snap.Values) {
		return nil, status.Errorf(codes.InvalidArgument,
			"points has %d entries, values has %d", len(snap.Points), len(snap.Values))
	}

	r.store.Put(snap)
	if r.eval != nil {
		r.eval.Evaluate(snap)
	}

	slog.Debug("receiver: snapshot stored",
		"source_id", snap.SourceID,
		"source_type", snap.SourceType,
		"state", snap.State,
		"values", len(snap.Values),
	)

	return &types.PushResponse{OK: true}, nil
}
