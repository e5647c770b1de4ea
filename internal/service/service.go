// Package service implements the storefront's business logic on top of the
// repositories, the event producer and the external providers.
package service

import (
	"errors"
	"log/slog"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// notFound turns a bare ErrNotFound from a repository into a 404 naming
// resource. Other errors pass through.
func notFound(err error, resource string) error {
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NotFound(resource)
}

func errAttr(err error) slog.Attr {
	return slog.String("error", err.Error())
}
