package pagenav

import "errors"

var (
	// ErrSuperseded is returned by a navigation whose result was discarded
	// because a newer navigation started before it finished.
	ErrSuperseded = errors.New("navigation superseded by a newer request")
	// ErrNotInitialized is returned when the engine has no source to query.
	ErrNotInitialized = errors.New("engine is not initialized")
	// ErrNoGetter is returned when an ordering column has no getter.
	ErrNoGetter = errors.New("no getter for ordering column")
)

// errorMessage maps err to the message stored in State.Error.
func errorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}

	return err.Error()
}
