package score

import (
	"testing"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlgorithm() *kb.Algorithm {
	return &kb.Algorithm{
		DataTypes:        []string{"database"},
		SecurityLevel:    5,
		PerformanceScore: 3,
		UseCases:         []string{"storage"},
	}
}

func testRequirements() *Requirements {
	return &Requirements{
		DataType:            "database",
		SecurityPriority:    8,
		PerformancePriority: 4,
		UseCase:             "storage",
		Compliance:          []string{"PCI"},
	}
}

func TestScoreScenarioFullMatch(t *testing.T) {
	standards := map[string]*kb.Standard{
		"PCI": {RecommendedAlgorithms: []string{"X"}},
	}

	r := Evaluate("X", testAlgorithm(), testRequirements(), standards)
	assert.InDelta(t, 20, r.DataType, 0.0001)
	assert.InDelta(t, 32, r.Security, 0.0001)
	assert.InDelta(t, 9.6, r.Performance, 0.0001)
	assert.InDelta(t, 15, r.UseCase, 0.0001)
	assert.InDelta(t, 10, r.Compliance, 0.0001)
	assert.InDelta(t, 86.6, r.Raw, 0.0001)
	assert.Equal(t, 87, r.Score)
	assert.Equal(t, []string{"PCI"}, r.RecommendedBy)
	assert.False(t, r.Vetoed())

	assert.Equal(t, 87, Score("X", testAlgorithm(), testRequirements(), standards))
}

func TestScoreScenarioProhibited(t *testing.T) {
	standards := map[string]*kb.Standard{
		"PCI": {ProhibitedAlgorithms: []string{"X"}},
	}
	r := Evaluate("X", testAlgorithm(), testRequirements(), standards)
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, "PCI", r.ProhibitedBy)
	assert.True(t, r.Vetoed())
}

func TestScoreProhibitedOverridesRecommended(t *testing.T) {
	standards := map[string]*kb.Standard{
		"A": {RecommendedAlgorithms: []string{"X"}},
		"B": {ProhibitedAlgorithms: []string{"X"}},
		"C": {RecommendedAlgorithms: []string{"X"}, ProhibitedAlgorithms: []string{"X"}},
	}
	orders := [][]string{
		{"A", "B"},
		{"B", "A"},
		{"C"},
		{"missing", "A", "C"},
	}
	for _, o := range orders {
		req := testRequirements()
		req.Compliance = o
		assert.Equal(t, 0, Score("X", testAlgorithm(), req, standards), "compliance %v", o)
	}
}

func TestScoreVetoStopsCompliancePass(t *testing.T) {
	standards := map[string]*kb.Standard{
		"A": {ProhibitedAlgorithms: []string{"X"}},
		"B": {RecommendedAlgorithms: []string{"X"}},
	}
	req := testRequirements()
	req.Compliance = []string{"A", "B"}
	r := Evaluate("X", testAlgorithm(), req, standards)
	assert.Equal(t, "A", r.ProhibitedBy)
	assert.Empty(t, r.RecommendedBy)
}

func TestScoreSecurityFloor(t *testing.T) {
	standards := map[string]*kb.Standard{
		"PCI": {RecommendedAlgorithms: []string{"X"}},
	}
	for _, level := range []float64{0, 1, 2, 2.99, -1} {
		a := testAlgorithm()
		a.SecurityLevel = level
		a.PerformanceScore = 5
		a.QuantumResistant = true
		r := Evaluate("X", a, testRequirements(), standards)
		assert.Equal(t, 0, r.Score, "level %v", level)
		assert.True(t, r.BelowFloor)
	}

	a := testAlgorithm()
	a.SecurityLevel = SecurityFloor
	assert.Positive(t, Score("X", a, nil, nil))
}

func TestScoreQuantumPenalty(t *testing.T) {
	cases := []struct {
		name string
		algo *kb.Algorithm
		req  *Requirements
	}{
		{name: "full", algo: testAlgorithm(), req: testRequirements()},
		{name: "defaults", algo: testAlgorithm(), req: &Requirements{}},
		{name: "odd", algo: &kb.Algorithm{SecurityLevel: 3.3, PerformanceScore: 1.7}, req: &Requirements{SecurityPriority: 7, PerformancePriority: 3}},
	}
	standards := map[string]*kb.Standard{"PCI": {RecommendedAlgorithms: []string{"X"}}}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			base := Score("X", c.algo, c.req, standards)

			q := *c.req
			q.QuantumConcern = true
			r := Evaluate("X", c.algo, &q, standards)
			assert.True(t, r.QuantumPenalty)
			assert.InDelta(t, float64(base)/2, float64(r.Score), 1)

			c.algo.QuantumResistant = true
			assert.Equal(t, base, Score("X", c.algo, &q, standards))
		})
	}
}

func TestScoreMonotonicInSecurityPriority(t *testing.T) {
	for _, level := range []float64{0.5, 3, 4, 5} {
		a := testAlgorithm()
		a.SecurityLevel = level
		prev := -1
		for p := MinPriority; p <= MaxPriority; p++ {
			req := testRequirements()
			req.SecurityPriority = p
			s := Score("X", a, req, nil)
			assert.GreaterOrEqual(t, s, prev, "level %v priority %d", level, p)
			prev = s
		}
	}
}

func TestScoreIdempotentAndReadOnly(t *testing.T) {
	a := testAlgorithm()
	req := testRequirements()
	standards := map[string]*kb.Standard{"PCI": {RecommendedAlgorithms: []string{"X"}}}

	first := Score("X", a, req, standards)
	second := Score("X", a, req, standards)
	assert.Equal(t, first, second)

	assert.Equal(t, testAlgorithm(), a)
	assert.Equal(t, testRequirements(), req)
	assert.Equal(t, []string{"X"}, standards["PCI"].RecommendedAlgorithms)
	assert.Len(t, standards, 1)
}

func TestScoreTotal(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, 0, Score("", nil, nil, nil))
		assert.Equal(t, 0, Score("X", &kb.Algorithm{}, &Requirements{}, map[string]*kb.Standard{}))
		// nil standards are skipped like absent ones: 86.6 - 10
		assert.Equal(t, 77, Score("X", testAlgorithm(), testRequirements(), map[string]*kb.Standard{"PCI": nil}))
	})
}

func TestScoreDefaults(t *testing.T) {
	a := &kb.Algorithm{SecurityLevel: 4, PerformanceScore: 2}

	// priority 0 reads as 5: 4*1*4 + 2*1*4
	assert.Equal(t, 24, Score("X", a, &Requirements{}, nil))
	assert.Equal(t, 24, Score("X", a, nil, nil))
	assert.Equal(t, 24, Score("X", a, &Requirements{SecurityPriority: 5, PerformancePriority: 5}, nil))

	// data type and use case must be set to match
	a.DataTypes = []string{""}
	a.UseCases = []string{""}
	assert.Equal(t, 24, Score("X", a, &Requirements{}, nil))
}

func TestScoreRoundsHalfToEven(t *testing.T) {
	// 3*1*4 + 0.125*1*4 = 12.5
	a := &kb.Algorithm{SecurityLevel: 3, PerformanceScore: 0.125}
	r := Evaluate("X", a, nil, nil)
	require.InDelta(t, 12.5, r.Raw, 0)
	assert.Equal(t, 12, r.Score)

	// 3*1*4 + 0.375*1*4 = 13.5
	a.PerformanceScore = 0.375
	assert.Equal(t, 14, Score("X", a, nil, nil))
}

func TestScoreClampsNegative(t *testing.T) {
	a := &kb.Algorithm{SecurityLevel: 3, PerformanceScore: -10}
	r := Evaluate("X", a, nil, nil)
	assert.Negative(t, r.Raw)
	assert.Equal(t, 0, r.Score)
}
