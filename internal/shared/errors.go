package shared

import "errors"

// Sentinels shared by stores, views and middleware. Wrap them with fmt.Errorf and test with
// errors.Is.
var (
	// ErrNotFound is returned by stores when no row has the requested primary key. Views turn
	// it into a 404.
	ErrNotFound = errors.New("record does not exist")
	// ErrImproperlyConfigured marks a view, menu or model wired with missing or malformed settings.
	ErrImproperlyConfigured = errors.New("improperly configured")
	// ErrNotImplemented marks a capability that the model or instance does not provide.
	ErrNotImplemented = errors.New("not implemented")

	ErrCSRFTokenMissing  = errors.New("csrf: token missing from form and header")
	ErrCSRFTokenMismatch = errors.New("csrf: token does not match session")
)
