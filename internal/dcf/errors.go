package dcf

import "github.com/rotisserie/eris"

// ErrInvalidInput marks valuation inputs that violate a model invariant
// (non-positive horizon or shares, discount rate at or below -100%, or a
// discount rate not exceeding the terminal growth rate). Check with
// errors.Is; the wrap message names the offending field and value.
var ErrInvalidInput = eris.New("dcf: invalid input")

func invalidInputf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidInput, format, args...)
}
