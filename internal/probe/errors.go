package probe

import "errors"

var (
	// ErrNoCreationDate is returned when a WHOIS response carries no
	// parseable creation date. The age check must stay absent rather
	// than default to zero, which would read as a brand-new domain.
	ErrNoCreationDate = errors.New("whois response has no creation date")

	// ErrNoAPIKey is returned by probes whose upstream requires an API
	// key when none is configured.
	ErrNoAPIKey = errors.New("no API key configured")

	// ErrNoPTRRecord is returned when the scanned IP has no PTR record.
	ErrNoPTRRecord = errors.New("no PTR record")
)
