package configerr

import "errors"

var (
	// ErrConfiguration indicates the build configuration is invalid, e.g. no extensions
	// were configured or a merge policy names a malformed field path
	ErrConfiguration = errors.New("configuration error")
	// ErrDiscovery indicates the source or entry directory could not be read
	ErrDiscovery = errors.New("discovery error")
	// ErrLifecycle indicates a mutation was attempted after the configuration was finalized
	ErrLifecycle = errors.New("lifecycle error")
)
