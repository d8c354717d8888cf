// Package changefeed routes already-decoded row change events to
// subscribers by table name.
//
// Delivery is at-least-once: a producer may hand the same event to Deliver
// more than once. Consumers that need exactly-once effects wrap their
// handler with a Dedup.
package changefeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Operation is the kind of row change.
type Operation string

const (
	Insert Operation = "insert"
	Update Operation = "update"
	Delete Operation = "delete"
)

// Row is a decoded row image keyed by column name.
type Row map[string]any

// Event is one row change.
type Event struct {
	// ID identifies the event for de-duplication. Deliver assigns one when
	// it is empty.
	ID        string    `json:"id" mapstructure:"id"`
	Table     string    `json:"table" mapstructure:"table"`
	Operation Operation `json:"operation" mapstructure:"operation"`
	Before    Row       `json:"before,omitempty" mapstructure:"before"`
	After     Row       `json:"after,omitempty" mapstructure:"after"`
}

// Handler consumes an event.
type Handler func(ctx context.Context, ev Event) error

var (
	// ErrNoTable is returned for events without a table name.
	ErrNoTable = errors.New("event has no table")
	// ErrUnknownOperation is returned for operations other than insert,
	// update and delete.
	ErrUnknownOperation = errors.New("unknown operation")
)

// Validate checks that the row images present match the operation: inserts
// carry an after image, deletes a before image, and updates an after image.
func (e Event) Validate() error {
	if e.Table == "" {
		return ErrNoTable
	}
	switch e.Operation {
	case Insert, Update:
		if e.After == nil {
			return fmt.Errorf("%s on %s: missing after row", e.Operation, e.Table)
		}
	case Delete:
		if e.Before == nil {
			return fmt.Errorf("delete on %s: missing before row", e.Table)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownOperation, e.Operation)
	}
	return nil
}

// Decode builds an event from a generic map, as produced by JSON or YAML
// decoders, and validates it.
func Decode(raw map[string]any) (Event, error) {
	var ev Event
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &ev,
		ErrorUnused: true,
	})
	if err != nil {
		return ev, err
	}
	if err := dec.Decode(raw); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, ev.Validate()
}
