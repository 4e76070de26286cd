package nn

import "strings"

// Activation is the per-unit nonlinearity of a dense layer.
type Activation int

const (
	Linear Activation = iota
	Relu
)

// ParseActivation accepts "linear" and "relu" in any case.
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return Linear, nil
	case "relu":
		return Relu, nil
	}
	return 0, &UnsupportedActivationError{Index: -1, Name: name}
}

// String returns the token used by the C ActivationType enum.
func (a Activation) String() string {
	switch a {
	case Linear:
		return "LINEAR"
	case Relu:
		return "RELU"
	default:
		return "UNKNOWN"
	}
}

// Name returns the lower-case activation name as trained models report it.
func (a Activation) Name() string {
	return strings.ToLower(a.String())
}

func (a Activation) apply(x float32) float32 {
	if a == Relu && x < 0 {
		return 0
	}
	return x
}
