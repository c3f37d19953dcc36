package solve

import "github.com/rotisserie/eris"

// Solver error kinds, checked with errors.Is. Both are recoverable from
// the caller's side: widen the bracket or relax the tolerance and call
// again.
var (
	// ErrNoSignChange means the bracket endpoints evaluate to the same
	// side of the target price, so no root can lie between them.
	ErrNoSignChange = eris.New("solve: no sign change across bracket")

	// ErrNonConvergence means the iteration cap was reached before the
	// bracket or residual fell under tolerance.
	ErrNonConvergence = eris.New("solve: did not converge")

	// ErrInvalidQuery marks a malformed query or options (empty bracket,
	// non-positive tolerance, unknown field).
	ErrInvalidQuery = eris.New("solve: invalid query")
)

func noSignChangef(format string, args ...any) error {
	return eris.Wrapf(ErrNoSignChange, format, args...)
}

func nonConvergencef(format string, args ...any) error {
	return eris.Wrapf(ErrNonConvergence, format, args...)
}

func invalidQueryf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidQuery, format, args...)
}
