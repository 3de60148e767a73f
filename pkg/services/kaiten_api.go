package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/logging"
)

// KaitenAPI is the part of the Kaiten client the services depend on.
// *kaiten.Client satisfies it.
type KaitenAPI interface {
	Projects(ctx context.Context) ([]kaiten.Project, error)
	Boards(ctx context.Context, projectID string) ([]kaiten.Board, error)
	BoardRoles(ctx context.Context, projectID, boardID string) ([]kaiten.Role, error)
	Roles(ctx context.Context) ([]kaiten.Role, error)
	Users(ctx context.Context) ([]kaiten.User, error)
	Cards(ctx context.Context, q kaiten.CardQuery) ([]kaiten.Card, error)
	TimeLogs(ctx context.Context, cardID string) ([]kaiten.TimeLog, error)
	SelectValues(ctx context.Context, propertyID string) ([]kaiten.SelectValue, error)
	Columns(ctx context.Context, boardID string) ([]kaiten.Column, error)
	Lanes(ctx context.Context, boardID string) ([]kaiten.Lane, error)
}

var _ KaitenAPI = (*kaiten.Client)(nil)

// Transactor runs a function inside one database transaction.
// *database.DB satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FetchStatus records whether remote fetches were degraded to empty results.
type FetchStatus struct {
	// Degraded is set when any fetch failed and was replaced by an empty result.
	Degraded bool `json:"degraded"`
	// Refused is set when Kaiten declined at least one request.
	Refused bool `json:"refused"`
}

// Merge folds another status into s.
func (s *FetchStatus) Merge(other FetchStatus) {
	s.Degraded = s.Degraded || other.Degraded
	s.Refused = s.Refused || other.Refused
}

// absorb records a failed fetch. It returns true when err was non-nil, so the
// caller can substitute an empty result. Context cancellation is not absorbed.
func (s *FetchStatus) absorb(err error, logger *zap.Logger, what string, fields ...zap.Field) bool {
	if err == nil {
		return false
	}
	s.Degraded = true
	fields = append(fields, zap.String("error", logging.SanitizeError(err)))
	switch {
	case kaiten.IsRefusal(err):
		s.Refused = true
		logger.Warn("Kaiten refused "+what+", using empty result", fields...)
	case kaiten.IsShape(err):
		logger.Error("Unexpected Kaiten response for "+what+", using empty result", fields...)
	default:
		logger.Warn("Failed to fetch "+what+", using empty result", fields...)
	}
	return true
}

// canceled reports whether err should abort the caller: only when the
// caller's own context has ended. A per-call timeout inside the client
// leaves ctx alive and is absorbed like any other failed fetch.
func canceled(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
