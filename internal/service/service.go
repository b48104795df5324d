package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/tasks"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPageNumber keeps offsets far from integer overflow.
	MaxPageNumber = 1_000_000
)

var (
	ErrForbidden = apperr.Forbidden("forbidden")
	ErrAdminOnly = apperr.Forbidden("admin role required")
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.UserRoleAdmin
}

// Owns reports whether the actor may act on a resource owned by ownerID.
// Admins may act on everything.
func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID)
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Limit  int
}

// Bounds returns the SQL limit and offset for the page, applying defaults
// and the maximum page size.
func (p Page) Bounds() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	number := p.Number
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	return limit, (number - 1) * limit
}

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task tasks.Task) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// notFound converts a repository miss into the public error, passing other
// errors through wrapped with op.
func notFound(err error, sentinel error, public *apperr.Error, op string) error {
	if errors.Is(err, sentinel) {
		return public
	}
	return fmt.Errorf("%s: %w", op, err)
}

// publish sends an event and logs failures. Event delivery never fails the
// calling operation.
func publish(ctx context.Context, publisher events.Publisher, log zerolog.Logger, eventType string, data any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}
