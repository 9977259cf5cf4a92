package planner

import "errors"

// Caller-facing error kinds. Every mutating operation returns one of these
// (or nil); the core never panics on bad input. The HTTP layer maps them to
// status codes in internal/api.
var (
	// ErrInvalidPayload signals a candidate payload missing its required
	// identity field (name).
	ErrInvalidPayload = errors.New("invalid payload: missing required fields")

	// ErrNotFound signals an id or subject key that does not exist in the
	// current state. Voting on a removed recommendation surfaces this so
	// callers can distinguish "item gone" from the idempotent re-vote no-op.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInCart signals a promotion whose subject is already covered
	// by the cart. Non-fatal: the source recommendation is still resolved.
	ErrAlreadyInCart = errors.New("subject already in cart")

	// ErrInvalidSettings signals a non-positive trip length or party size.
	ErrInvalidSettings = errors.New("invalid cart settings")

	// ErrEmptyCart signals itinerary generation with no activities present.
	ErrEmptyCart = errors.New("cart has no activities")
)

// IsAlreadyInCart reports whether err is the non-fatal promotion outcome.
func IsAlreadyInCart(err error) bool {
	return errors.Is(err, ErrAlreadyInCart)
}
