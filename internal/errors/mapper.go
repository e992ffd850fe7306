// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/coffee-chat/internal/directory"
	"github.com/oggyb/coffee-chat/internal/pairing"
	"github.com/oggyb/coffee-chat/internal/utils/pagination"
)

// Map converts domain and infra errors into gRPC status errors.
// Errors that already carry a status pass through unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return err
	}

	var transport *pairing.TransportError
	switch {
	case errors.Is(err, pairing.ErrInsufficientUsers):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, pairing.ErrNotScheduled):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, directory.ErrUserNotFound), errors.Is(err, pairing.ErrMissingUser):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, pagination.ErrInvalidToken):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.As(err, &transport):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// Unauthenticated creates a gRPC Unauthenticated error.
func Unauthenticated(msg string) error {
	return status.Error(codes.Unauthenticated, msg)
}
