package microiaas

import "errors"

// Failure taxonomy. Every error leaving the engine gateway or the ledger
// matches exactly one of these sentinels under errors.Is; callers never
// inspect error strings.
var (
	// ErrNotFound: the target id does not resolve to a live container.
	// Expected during normal operation, always user-correctable.
	ErrNotFound = errors.New("container not found")

	// ErrValidation: required operator input is missing. Rejected before
	// any external call.
	ErrValidation = errors.New("invalid input")

	// ErrNameCollision: a live container already uses the requested name.
	ErrNameCollision = errors.New("container name already in use")

	// ErrImageUnavailable: the image is not present locally. Transient;
	// triggers one pull-and-retry on create.
	ErrImageUnavailable = errors.New("image unavailable")

	// ErrEngineAPI: the engine rejected an otherwise well-formed request.
	ErrEngineAPI = errors.New("engine api error")

	// ErrEngineUnreachable: the engine could not be contacted at all.
	ErrEngineUnreachable = errors.New("engine unreachable")

	// ErrStoreUnavailable: the ledger could not be read or written. Never
	// escalates to undo a completed engine action.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// classified pairs an underlying error with its taxonomy sentinel so that
// errors.Is matches the sentinel while the original cause stays on the chain.
type classified struct {
	kind  error
	cause error
}

func (c *classified) Error() string        { return c.kind.Error() + ": " + c.cause.Error() }
func (c *classified) Unwrap() error        { return c.cause }
func (c *classified) Is(target error) bool { return target == c.kind }

// Classify tags cause with a taxonomy sentinel. It returns nil for a nil
// cause and leaves already-classified errors alone.
func Classify(kind, cause error) error {
	if cause == nil {
		return nil
	}
	for _, s := range []error{
		ErrNotFound, ErrValidation, ErrNameCollision, ErrImageUnavailable,
		ErrEngineAPI, ErrEngineUnreachable, ErrStoreUnavailable,
	} {
		if errors.Is(cause, s) {
			return cause
		}
	}
	return &classified{kind: kind, cause: cause}
}
