package changeorder

import "errors"

var (
	// ErrCorruptState wraps every decode failure.
	ErrCorruptState = errors.New("corrupt change order state")

	// ErrInvalidStatus is returned for a status ordinal outside 0..2.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrUnknownRow means an intent arrived for a row handle the registry no
	// longer (or never) held. The operation is aborted before any mutation.
	ErrUnknownRow = errors.New("row handle not registered")

	// ErrAddDisabled is returned by Add while the session is flagged corrupt.
	ErrAddDisabled = errors.New("adding change orders is disabled: field data may be corrupt")

	// ErrNotInitialized is returned by operations on a controller that has
	// not been initialized or has been torn down.
	ErrNotInitialized = errors.New("controller not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("controller already initialized")

	// ErrMisaligned means the store and registry lengths differ.
	ErrMisaligned = errors.New("records and rows are misaligned")
)

// CorruptWarning is shown to the operator when the field text cannot be read.
const CorruptWarning = `Warning! Data may be corrupt in the "Change Orders" field. Contact an administrator to reconstruct the stored value.`
