package lockbox

import "errors"

var (
	// ErrInvalidUserID is an exported constant or variable used by the session lock engine.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrUserNotFound is an exported constant or variable used by the session lock engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken is the single external-facing verification failure.
	// Signature, expiry, payload, and binding failures all surface as this.
	ErrInvalidToken = errors.New("invalid token")
	// ErrDeviceMismatch is an internal verification outcome; it is always
	// coerced to [ErrInvalidToken] before leaving a verifier gateway.
	ErrDeviceMismatch = errors.New("device binding mismatch")
	// ErrUnknownRefreshToken is an exported constant or variable used by the session lock engine.
	ErrUnknownRefreshToken = errors.New("unknown refresh token")
	// ErrStoreUnavailable is an exported constant or variable used by the session lock engine.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrDirectoryUnavailable is an exported constant or variable used by the session lock engine.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the session lock engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
