package ircd

import "errors"

// ErrListenerModification is returned by Server.AddListener once the
// server has left the Startup phase, per the invariant that listener
// topology is fixed before Run begins.
var ErrListenerModification = errors.New("ircd: listeners can only be added during startup")
