package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTrace is returned when a packet trace declares a different
	// packet count than it holds, or carries a rank outside [1, maxRank].
	ErrMalformedTrace = errors.New("malformed trace")

	// ErrInvalidConfiguration is returned for non-positive queue counts,
	// rank bounds or packet counts. Raised before any actor starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrChannelClosedPrematurely is returned when a stage's input ends
	// without the sentinel that stage expects.
	ErrChannelClosedPrematurely = errors.New("input closed before sentinel")

	// ErrInvalidRank is returned when a packet's rank is outside [1, maxRank].
	ErrInvalidRank = errors.New("invalid rank")

	// ErrProtocolViolation is returned when a sentinel reaches a stage that
	// must never see it (e.g. end-of-stream on stage 2).
	ErrProtocolViolation = errors.New("sentinel protocol violation")
)

// ActorError names the actor that detected a failure.
type ActorError struct {
	Actor string // "generator", "stage1", "stage2", "dispatcher", ...
	Err   error
}

func (e *ActorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Actor, e.Err)
}

func (e *ActorError) Unwrap() error {
	return e.Err
}

// actorErr wraps err with the actor name. Returns nil for a nil err.
func actorErr(actor string, err error) error {
	if err == nil {
		return nil
	}
	var ae *ActorError
	if errors.As(err, &ae) {
		return err
	}
	return &ActorError{Actor: actor, Err: err}
}
