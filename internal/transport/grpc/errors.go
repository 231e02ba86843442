package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"appointly/internal/domain"
	"appointly/internal/service/appointments"
	"appointly/internal/store"
)

// conflictTypesTrailer carries the rejected conflict types on FailedPrecondition.
const conflictTypesTrailer = "x-conflict-types"

// toStatus converts a service error into a gRPC status and logs it at the
// level its kind deserves. Errors that already carry a status pass through.
func toStatus(ctx context.Context, log *slog.Logger, op string, err error, args ...any) error {
	args = append(args, slog.Any("err", err))

	if _, ok := status.FromError(err); ok {
		log.WarnContext(ctx, "invalid request", args...)
		return err
	}
	if ve, ok := domain.IsValidation(err); ok {
		log.WarnContext(ctx, "invalid request", append(args, slog.String("kind", string(ve.Kind)))...)
		return status.Error(codes.InvalidArgument, ve.Message)
	}

	var conflict *appointments.ConflictError
	switch {
	case errors.As(err, &conflict):
		types := make([]string, 0, len(conflict.Report.Conflicts))
		for _, t := range conflict.Report.Types() {
			types = append(types, string(t))
		}
		// SetTrailer only fails outside a server stream.
		_ = grpc.SetTrailer(ctx, metadata.Pairs(conflictTypesTrailer, strings.Join(types, ",")))
		log.InfoContext(ctx, op+" conflict", append(args, slog.Any("conflicts", types))...)
		return status.Error(codes.FailedPrecondition, conflict.Error())
	case errors.Is(err, store.ErrConflict):
		log.InfoContext(ctx, op+" conflict", args...)
		return status.Error(codes.FailedPrecondition, "The professional already has an appointment during that time. Pick a different slot.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.InfoContext(ctx, op+" idempotency conflict", args...)
		return status.Error(codes.AlreadyExists, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, store.ErrNotFound):
		log.InfoContext(ctx, op+" not found", args...)
		return status.Error(codes.NotFound, "appointment not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, op+" deadline exceeded", args...)
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		log.InfoContext(ctx, op+" canceled", args...)
		return status.Error(codes.Canceled, "request canceled")
	case store.IsUnavailable(err):
		log.ErrorContext(ctx, op+" failed", args...)
		return status.Error(codes.Unavailable, "storage unavailable, retry later")
	default:
		log.ErrorContext(ctx, op+" failed", args...)
		return status.Error(codes.Internal, "internal error")
	}
}
