package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared across layers. Adapters wrap their native
// errors with one of these so callers can branch with errors.Is.
var (
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrChannelUnavailable      = errors.New("channel unavailable")
	ErrInvalidSubscriptionType = errors.New("invalid subscription type")
	ErrMissingTarget           = errors.New("missing subscription target")
	ErrInvalidTarget           = errors.New("invalid subscription target")
	ErrInvalidTopicName        = errors.New("invalid topic name")
	ErrInvalidEvent            = errors.New("invalid event")
	ErrNotFound                = errors.New("not found")
	ErrCorruptRecord           = errors.New("corrupt record")
)

// DeliveryError describes one failed (subscription, event) delivery.
type DeliveryError struct {
	SubscriptionID string
	EventID        string
	Channel        ChannelType
	Err            error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver event %s to subscription %s via %s: %v", e.EventID, e.SubscriptionID, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a client-side input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSubscriptionType) ||
		errors.Is(err, ErrMissingTarget) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInvalidTopicName) ||
		errors.Is(err, ErrInvalidEvent)
}

// IsUnavailable reports whether err is an infrastructure outage.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrChannelUnavailable)
}
