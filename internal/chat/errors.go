package chat

import (
	"errors"
	"fmt"
)

// DeliveryError is a transport rejection with the remote error code.
type DeliveryError struct {
	Code       int
	Message    string
	RetryAfter int // seconds, set for 429 responses
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error %d: %s", e.Code, e.Message)
}

// Permanent reports whether resending the same message cannot succeed,
// e.g. the user blocked the bot (403) or the chat does not exist (400).
func (e *DeliveryError) Permanent() bool {
	return e.Code == 403 || e.Code == 400
}

// AsDeliveryError extracts a DeliveryError from err.
func AsDeliveryError(err error) (*DeliveryError, bool) {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
