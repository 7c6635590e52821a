package transfer

import (
	"context"
	"errors"
	"net"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

// classify maps a transport or body read error onto a TransferError.
// The context decides between caller cancellation and a deadline.
func classify(ctx context.Context, attempt int, err error) error {
	var te *domain.TransferError
	if errors.As(err, &te) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return domain.NewTransferError(domain.KindCancelled, attempt, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return domain.NewTransferError(domain.KindTimeout, attempt, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.NewTransferError(domain.KindTimeout, attempt, err)
	default:
		return domain.NewTransferError(domain.KindNetwork, attempt, err)
	}
}

// classifyWait maps a bandwidth limiter error. The limiter refuses early
// when the deadline would pass before tokens are available.
func classifyWait(ctx context.Context, attempt int, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return domain.NewTransferError(domain.KindCancelled, attempt, err)
	}
	return domain.NewTransferError(domain.KindTimeout, attempt, err)
}
