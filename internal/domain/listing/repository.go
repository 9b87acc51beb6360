package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/poketrade-exchange/internal/domain/shared"
)

// Repository manages listing persistence
type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	// LockForUpdate should be used within a transaction before settling against the listing.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Listing, error)
	// Update persists quantity, status and updated_at.
	Update(ctx context.Context, l *Listing) error
	ListActive(ctx context.Context, limit, offset int) ([]*Listing, error)
	CountActive(ctx context.Context) (int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*Listing, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
	// SumActiveQuantity is the quantity of a card the seller has on sale.
	SumActiveQuantity(ctx context.Context, sellerID, cardID uuid.UUID) (int, error)
	WithTx(tx pgx.Tx) Repository
}

// PurchaseRepository manages purchase records
type PurchaseRepository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*Purchase, error)
	// ListByUser returns purchases where the user is buyer or seller, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Purchase, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) PurchaseRepository
}

// ErrListingNotFound indicates a missing listing
type ErrListingNotFound struct {
	ListingID uuid.UUID
}

func (e ErrListingNotFound) Error() string {
	return "listing not found: " + e.ListingID.String()
}

func (e ErrListingNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrListingNotFound)
	return ok && (t.ListingID == uuid.Nil || t.ListingID == e.ListingID)
}

// ErrPurchaseNotFound indicates a missing purchase record
type ErrPurchaseNotFound struct {
	PurchaseID uuid.UUID
}

func (e ErrPurchaseNotFound) Error() string {
	return "purchase not found: " + e.PurchaseID.String()
}

func (e ErrPurchaseNotFound) Is(target error) bool {
	return target == shared.ErrNotFound
}

// ErrListingNotActive is returned for operations on SOLD or CANCELLED listings
type ErrListingNotActive struct {
	ListingID uuid.UUID
	Status    Status
}

func (e ErrListingNotActive) Error() string {
	return fmt.Sprintf("listing %s is %s", e.ListingID, e.Status)
}

func (e ErrListingNotActive) Is(target error) bool {
	return target == shared.ErrInvalidState
}

// ErrNotPermitted is returned when the actor may not act on the listing
type ErrNotPermitted struct {
	ListingID uuid.UUID
	ActorID   uuid.UUID
	Action    string
}

func (e ErrNotPermitted) Error() string {
	return fmt.Sprintf("user %s may not %s on listing %s", e.ActorID, e.Action, e.ListingID)
}

func (e ErrNotPermitted) Is(target error) bool {
	return target == shared.ErrUnauthorized
}

// ErrExceedsRemaining is returned when a purchase asks for more than is left
type ErrExceedsRemaining struct {
	ListingID uuid.UUID
	Requested int
	Remaining int
}

func (e ErrExceedsRemaining) Error() string {
	return fmt.Sprintf("listing %s has %d remaining, %d requested", e.ListingID, e.Remaining, e.Requested)
}

func (e ErrExceedsRemaining) Is(target error) bool {
	return target == shared.ErrInsufficientQuantity
}
