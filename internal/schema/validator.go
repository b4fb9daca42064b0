// Package schema validates events before they are published.
package schema

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrInvalidEvent wraps every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Validatable is implemented by every published event.
type Validatable interface {
	Validate() error
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks an event. Types that do not implement Validatable are
// rejected.
func (v *Validator) Validate(event any) error {
	ev, ok := event.(Validatable)
	if !ok {
		return fmt.Errorf("%w: %T has no schema", ErrInvalidEvent, event)
	}
	if err := ev.Validate(); err != nil {
		log.Debug().Err(err).Str("type", fmt.Sprintf("%T", event)).Msg("Schema validation failed")
		return fmt.Errorf("%w: %T: %v", ErrInvalidEvent, event, err)
	}
	return nil
}
