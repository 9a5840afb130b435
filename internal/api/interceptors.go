package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	derrors "github.com/randalmurphal/dossier/internal/errors"
)

// LoggingInterceptor logs each RPC with its method, duration and error.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			// Procedure format: /dossier.v1.WorkflowService/Approve
			method := req.Spec().Procedure
			if parts := strings.Split(method, "/"); len(parts) >= 3 {
				method = parts[2]
			}
			if err != nil {
				logger.Warn("rpc failed", "method", method, "duration", time.Since(start), "error", err)
			} else {
				logger.Debug("rpc completed", "method", method, "duration", time.Since(start))
			}
			return resp, err
		}
	}
}

// ErrorInterceptor converts domain errors into Connect errors.
func ErrorInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return resp, mapError(err)
			}
			return resp, nil
		}
	}
}

// RecoverInterceptor turns handler panics into internal errors.
func RecoverInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered in rpc", "method", req.Spec().Procedure, "panic", r)
					err = connect.NewError(connect.CodeInternal, errors.New("internal server error"))
				}
			}()
			return next(ctx, req)
		}
	}
}

func mapError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	de := derrors.AsDossierError(err)
	if de == nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	msg := de.What
	if de.Why != "" {
		msg += ": " + de.Why
	}
	ce := connect.NewError(connectCode(de.Category()), errors.New(msg))
	ce.Meta().Set("Dossier-Error-Code", string(de.Code))
	for field, reason := range de.Fields {
		ce.Meta().Add("Dossier-Field-Error", field+": "+reason)
	}
	return ce
}

func connectCode(c derrors.Category) connect.Code {
	switch c {
	case derrors.CategoryNotFound:
		return connect.CodeNotFound
	case derrors.CategoryBadRequest:
		return connect.CodeInvalidArgument
	case derrors.CategoryConflict:
		return connect.CodeFailedPrecondition
	case derrors.CategoryForbidden:
		return connect.CodePermissionDenied
	default:
		return connect.CodeInternal
	}
}
