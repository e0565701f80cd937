package visit

import "errors"

// ErrConsecutiveStart reports protocol misuse: Start was called while a page
// was already being timed, without an intervening Stop.
var ErrConsecutiveStart = errors.New("visit: start called while a page visit is already being timed")

// ErrStorageUnavailable marks the session storage capability as absent. It is
// a degradation signal, not a failure: operations that hit it fall back to
// doing nothing.
var ErrStorageUnavailable = errors.New("visit: session storage unavailable")
