package dispatch

import "errors"

// errNoTransport is returned when an email record is dispatched with no
// transport configured.
var errNoTransport = errors.New("dispatch: no email transport configured")
