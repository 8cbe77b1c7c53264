package coordinator

import "errors"

// ErrNoActiveConversation is returned when an operation needs an active
// conversation and the shared slot is empty.
var ErrNoActiveConversation = errors.New("no active conversation")
