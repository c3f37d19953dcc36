// Package solve finds the single valuation assumption a market price
// implies, by bracketed bisection over the DCF fair value function.
package solve

import (
	"math"

	"github.com/akashaero/fairval/internal/dcf"
)

// Field selects which assumption the solver varies.
type Field string

const (
	FieldGrowthRate     Field = "growth_rate"
	FieldFCFMargin      Field = "fcf_margin"
	FieldRequiredReturn Field = "required_return"
)

// Query describes one implied-parameter search: the field to vary, the
// per-share price to match, and the bracket the answer must lie in.
type Query struct {
	Field       Field   `json:"field"`
	TargetPrice float64 `json:"target_price"` // per share
	Lo          float64 `json:"lo"`
	Hi          float64 `json:"hi"`
}

// Options tune the bisection. Both come from configuration so callers can
// trade precision for speed.
type Options struct {
	Tolerance     float64 `json:"tolerance"`      // on bracket width and |f(mid)|
	MaxIterations int     `json:"max_iterations"` // hard cap before NonConvergence
}

// Result is the solver outcome. Callers must check Converged rather than
// assume success.
type Result struct {
	Field      Field   `json:"field"`
	Value      float64 `json:"value"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// override returns a copy of in with the queried field set to x.
func override(in dcf.ValuationInputs, field Field, x float64) dcf.ValuationInputs {
	switch field {
	case FieldGrowthRate:
		in.GrowthRate = x
	case FieldFCFMargin:
		in.FCFMargin = x
	case FieldRequiredReturn:
		in.RequiredReturn = x
	}
	return in
}

// Solve finds the value of the queried field for which the DCF fair value
// equals the target price, via bisection. The fair value is monotone in
// each queryable field, so a sign change across [lo, hi] pins a unique
// root. Same-signed endpoints fail with ErrNoSignChange; hitting the
// iteration cap fails with ErrNonConvergence. The solver never retries;
// widening the bracket is caller policy.
func Solve(in dcf.ValuationInputs, q Query, opts Options) (*Result, error) {
	if err := validate(in, q, opts); err != nil {
		return nil, err
	}

	f := func(x float64) (float64, error) {
		res, err := dcf.Evaluate(override(in, q.Field, x))
		if err != nil {
			return 0, err
		}
		return res.FairValuePerShare - q.TargetPrice, nil
	}

	fLo, err := f(q.Lo)
	if err != nil {
		return nil, err
	}
	fHi, err := f(q.Hi)
	if err != nil {
		return nil, err
	}

	// An endpoint may already sit on the root within tolerance.
	if math.Abs(fLo) <= opts.Tolerance {
		return &Result{Field: q.Field, Value: q.Lo, Iterations: 0, Converged: true}, nil
	}
	if math.Abs(fHi) <= opts.Tolerance {
		return &Result{Field: q.Field, Value: q.Hi, Iterations: 0, Converged: true}, nil
	}

	if (fLo > 0) == (fHi > 0) {
		return nil, noSignChangef("f(%g)=%g and f(%g)=%g share sign for %s", q.Lo, fLo, q.Hi, fHi, q.Field)
	}

	lo, hi := q.Lo, q.Hi
	mid := lo
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		mid = lo + (hi-lo)/2
		fMid, err := f(mid)
		if err != nil {
			return nil, err
		}

		if math.Abs(fMid) <= opts.Tolerance || hi-lo <= opts.Tolerance {
			return &Result{Field: q.Field, Value: mid, Iterations: iter, Converged: true}, nil
		}

		if (fMid > 0) == (fLo > 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}

	return &Result{Field: q.Field, Value: mid, Iterations: opts.MaxIterations},
		nonConvergencef("no root within tolerance %g after %d iterations for %s", opts.Tolerance, opts.MaxIterations, q.Field)
}

// validate rejects malformed queries before any evaluation runs. Bracket
// checks reuse the dcf invalid-input kind: a required-return bracket
// reaching the terminal growth rate would make every probe fail anyway.
func validate(in dcf.ValuationInputs, q Query, opts Options) error {
	if q.Lo >= q.Hi {
		return invalidQueryf("bracket [%g, %g] is empty", q.Lo, q.Hi)
	}
	if opts.Tolerance <= 0 {
		return invalidQueryf("tolerance must be positive, got %g", opts.Tolerance)
	}
	if opts.MaxIterations < 1 {
		return invalidQueryf("max iterations must be >= 1, got %d", opts.MaxIterations)
	}
	switch q.Field {
	case FieldGrowthRate, FieldFCFMargin:
	case FieldRequiredReturn:
		if q.Lo <= in.TerminalGrowthRate {
			return invalidQueryf("required return bracket low %g must exceed terminal growth rate %g", q.Lo, in.TerminalGrowthRate)
		}
	default:
		return invalidQueryf("unknown field %q", q.Field)
	}
	return nil
}
