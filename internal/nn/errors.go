package nn

import (
	"errors"
	"fmt"
)

// ErrEmptyModel is returned when a provider reports no layers.
var ErrEmptyModel = errors.New("model has no layers")

// UnsupportedLayerError reports a layer that is not fully-connected.
type UnsupportedLayerError struct {
	Index int
	Kind  string
}

func (e *UnsupportedLayerError) Error() string {
	return fmt.Sprintf("layer %d: unsupported layer kind %q (only dense layers are supported)", e.Index, e.Kind)
}

// UnsupportedActivationError reports an activation outside {linear, relu}.
type UnsupportedActivationError struct {
	Index int
	Name  string
}

func (e *UnsupportedActivationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("unsupported activation %q (only linear and relu are supported)", e.Name)
	}
	return fmt.Sprintf("layer %d: unsupported activation %q (only linear and relu are supported)", e.Index, e.Name)
}

// ShapeMismatchError reports a dimension that disagrees with the one it must match.
type ShapeMismatchError struct {
	Subject string
	Want    int
	Got     int
	Detail  string
}

func (e *ShapeMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("shape mismatch: %s: %s", e.Subject, e.Detail)
	}
	return fmt.Sprintf("shape mismatch: %s: want %d, got %d", e.Subject, e.Want, e.Got)
}

// NonFiniteValueError reports a NaN or Inf that has no portable C literal.
type NonFiniteValueError struct {
	Subject  string
	Position int
	Value    float32
}

func (e *NonFiniteValueError) Error() string {
	return fmt.Sprintf("%s[%d]: non-finite value %v", e.Subject, e.Position, e.Value)
}
