package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. Order matters: the request
// logger wraps the error handler so it observes the rendered status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, opts Options) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics, opts.Production))
	if opts.RequestTimeout > 0 {
		app.Use(requestTimeoutMiddleware(opts.RequestTimeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, production bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, err, logger, metrics, production)
			}
		}()
		return c.Next()
	}
}

// writeError renders err in the failure envelope.
func writeError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics, production bool) error {
	domainErr := toDomainError(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	details := domainErr.Details
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
		if !production && domainErr.Err != nil {
			details = map[string]any{"cause": domainErr.Err.Error()}
		}
	}
	if len(details) > 0 {
		body["details"] = details
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
		"success": false,
		"data":    nil,
		"error":   body,
	})
}

// toDomainError also translates fiber's own errors, such as unmatched routes.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case http.StatusNotFound:
			return apperrors.ToDomainError(apperrors.NewNotFound("route", nil))
		case http.StatusTooManyRequests:
			return apperrors.ToDomainError(apperrors.NewRateLimited())
		case http.StatusUnauthorized:
			return apperrors.ToDomainError(apperrors.NewUnauthorized(fe.Message))
		case http.StatusForbidden:
			return apperrors.ToDomainError(apperrors.NewForbidden(fe.Message))
		}
		if fe.Code >= http.StatusBadRequest && fe.Code < http.StatusInternalServerError {
			return apperrors.NewDomainError(apperrors.CodeValidation, fe.Message, fe.Code, nil)
		}
		return apperrors.ToDomainError(apperrors.NewInternalError(err))
	}
	return apperrors.ToDomainError(err)
}
