package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashaero/fairval/internal/dcf"
)

func workedInputs() dcf.ValuationInputs {
	return dcf.ValuationInputs{
		BaseRevenue:        100,
		GrowthRate:         0.10,
		FCFMargin:          0.20,
		HorizonYears:       5,
		RequiredReturn:     0.10,
		TerminalGrowthRate: 0.025,
		SharesOutstanding:  10,
	}
}

func defaultOptions() Options {
	return Options{Tolerance: 1e-6, MaxIterations: 200}
}

func TestSolveImpliedGrowth(t *testing.T) {
	t.Parallel()

	// Target equal to the worked example's own fair value: the implied
	// growth must come back as the assumed 10%.
	res, err := Solve(workedInputs(), Query{
		Field:       FieldGrowthRate,
		TargetPrice: 37.3333,
		Lo:          0.0,
		Hi:          0.30,
	}, defaultOptions())
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.InDelta(t, 0.10, res.Value, 1e-3)
	assert.Positive(t, res.Iterations)
}

func TestSolveRoundTrip(t *testing.T) {
	t.Parallel()

	in := workedInputs()
	eval, err := dcf.Evaluate(in)
	require.NoError(t, err)
	target := eval.FairValuePerShare

	tests := []struct {
		name   string
		query  Query
		want   float64
	}{
		{"growth", Query{Field: FieldGrowthRate, TargetPrice: target, Lo: -0.20, Hi: 0.50}, in.GrowthRate},
		{"margin", Query{Field: FieldFCFMargin, TargetPrice: target, Lo: 0.01, Hi: 2.0}, in.FCFMargin},
		{"required return", Query{Field: FieldRequiredReturn, TargetPrice: target, Lo: 0.03, Hi: 0.60}, in.RequiredReturn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Solve(in, tt.query, defaultOptions())
			require.NoError(t, err)
			assert.True(t, res.Converged)
			assert.InDelta(t, tt.want, res.Value, 1e-3)
		})
	}
}

func TestSolveNoSignChange(t *testing.T) {
	t.Parallel()

	// Every growth rate in [0.3, 0.6] values the stock far above $1, so
	// f is positive at both ends.
	res, err := Solve(workedInputs(), Query{
		Field:       FieldGrowthRate,
		TargetPrice: 1.0,
		Lo:          0.30,
		Hi:          0.60,
	}, defaultOptions())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoSignChange)
}

func TestSolveNonConvergence(t *testing.T) {
	t.Parallel()

	res, err := Solve(workedInputs(), Query{
		Field:       FieldGrowthRate,
		TargetPrice: 37.3333,
		Lo:          0.0,
		Hi:          0.30,
	}, Options{Tolerance: 1e-12, MaxIterations: 3})
	assert.ErrorIs(t, err, ErrNonConvergence)
	require.NotNil(t, res)
	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Iterations)
}

func TestSolveQueryValidation(t *testing.T) {
	t.Parallel()

	in := workedInputs()
	opts := defaultOptions()

	tests := []struct {
		name  string
		query Query
		opts  Options
	}{
		{"empty bracket", Query{Field: FieldGrowthRate, TargetPrice: 10, Lo: 0.5, Hi: 0.5}, opts},
		{"inverted bracket", Query{Field: FieldGrowthRate, TargetPrice: 10, Lo: 0.5, Hi: 0.1}, opts},
		{"unknown field", Query{Field: "beta", TargetPrice: 10, Lo: 0, Hi: 1}, opts},
		{"rrr bracket under tgr", Query{Field: FieldRequiredReturn, TargetPrice: 10, Lo: 0.01, Hi: 0.5}, opts},
		{"zero tolerance", Query{Field: FieldGrowthRate, TargetPrice: 10, Lo: 0, Hi: 1}, Options{Tolerance: 0, MaxIterations: 10}},
		{"zero iterations", Query{Field: FieldGrowthRate, TargetPrice: 10, Lo: 0, Hi: 1}, Options{Tolerance: 1e-6, MaxIterations: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Solve(in, tt.query, tt.opts)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestSolveEndpointAlreadyOnRoot(t *testing.T) {
	t.Parallel()

	in := workedInputs()
	eval, err := dcf.Evaluate(in)
	require.NoError(t, err)

	res, err := Solve(in, Query{
		Field:       FieldGrowthRate,
		TargetPrice: eval.FairValuePerShare,
		Lo:          0.10,
		Hi:          0.50,
	}, Options{Tolerance: 1e-3, MaxIterations: 100})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 0.10, res.Value, 1e-9)
	assert.Zero(t, res.Iterations)
}

func TestSolveDecreasingField(t *testing.T) {
	t.Parallel()

	// f is decreasing in required return; bisection must still bracket
	// correctly when the sign ordering is reversed.
	in := workedInputs()
	res, err := Solve(in, Query{
		Field:       FieldRequiredReturn,
		TargetPrice: 60.0, // higher price than 37.33 implies a lower rate
		Lo:          0.03,
		Hi:          0.60,
	}, defaultOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.Less(t, res.Value, in.RequiredReturn)

	check, err := dcf.Evaluate(override(in, FieldRequiredReturn, res.Value))
	require.NoError(t, err)
	assert.InDelta(t, 60.0, check.FairValuePerShare, 1e-3)
}
