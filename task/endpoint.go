package task

import (
	"fmt"

	"github.com/c360/pipekit/errors"
)

// Direction for endpoint data flow
type Direction string

// Direction constants for endpoint data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Endpoint describes one named data port of a task: its direction, element
// datatype, and element count per item. Endpoints are immutable after
// creation; identity within a block is the endpoint name.
type Endpoint struct {
	Name      string    `json:"name" yaml:"name"`
	Direction Direction `json:"direction" yaml:"direction"`
	Datatype  Datatype  `json:"datatype" yaml:"datatype"`
	Count     int       `json:"count" yaml:"count"`
}

// Validate checks the descriptor invariants
func (e Endpoint) Validate() error {
	if e.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("endpoint name is empty: %w", errors.ErrInvalidArgument),
			"Endpoint", "Validate", "name validation")
	}
	if e.Direction != DirectionInput && e.Direction != DirectionOutput {
		return errors.WrapInvalid(
			fmt.Errorf("endpoint %q has direction %q: %w", e.Name, e.Direction, errors.ErrInvalidArgument),
			"Endpoint", "Validate", "direction validation")
	}
	if !e.Datatype.Valid() {
		return errors.WrapUnreachable(
			fmt.Errorf("endpoint %q has datatype %s: %w", e.Name, e.Datatype, errors.ErrUnreachable),
			"Endpoint", "Validate", "datatype validation")
	}
	if e.Count <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("endpoint %q has count %d: %w", e.Name, e.Count, errors.ErrInvalidArgument),
			"Endpoint", "Validate", "count validation")
	}
	return nil
}

// Input builds an input endpoint descriptor
func Input(name string, dt Datatype, count int) Endpoint {
	return Endpoint{Name: name, Direction: DirectionInput, Datatype: dt, Count: count}
}

// Output builds an output endpoint descriptor
func Output(name string, dt Datatype, count int) Endpoint {
	return Endpoint{Name: name, Direction: DirectionOutput, Datatype: dt, Count: count}
}
