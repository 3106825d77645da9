package syncer

import (
	"context"

	"envdesk/internal/model"
)

// Gateway is the backend the controller commits to. Implementations own the
// authoritative state and its commit history.
type Gateway interface {
	FetchState(ctx context.Context) (model.State, error)
	// Commit applies one operation. Rejections should wrap a
	// *mutate.ValidationError where one applies.
	Commit(ctx context.Context, op model.Operation) error
	UndoLastBatch(ctx context.Context) error
}

// BatchSealer is implemented by gateways that group commits into batches. The
// controller seals after every fully successful flush so that one flush is
// one undo step.
type BatchSealer interface {
	SealBatch(ctx context.Context) error
}
