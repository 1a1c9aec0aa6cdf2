package sampler

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestSampleConvergesToProbability(t *testing.T) {
	const n = 20000
	for _, p := range []float64{0, 0.02, 0.25, 0.5, 0.9, 1} {
		s, err := New(Probabilities{Like: p, Reply: p, Collect: p}, seeded(42))
		require.NoError(t, err)

		var liked, replied, collected int
		for i := 0; i < n; i++ {
			a := s.Sample()
			if a.Like {
				liked++
			}
			if a.Reply {
				replied++
			}
			if a.Collect {
				collected++
			}
		}

		// 5 сигм биномиального распределения, плюс единица на краях.
		tolerance := 5*math.Sqrt(float64(n)*p*(1-p)) + 1
		expected := p * n
		assert.InDelta(t, expected, float64(liked), tolerance, "like p=%v", p)
		assert.InDelta(t, expected, float64(replied), tolerance, "reply p=%v", p)
		assert.InDelta(t, expected, float64(collected), tolerance, "collect p=%v", p)
	}
}

func TestSampleDecisionsAreIndependent(t *testing.T) {
	const n = 20000
	s, err := New(Probabilities{Like: 0.5, Reply: 0.5, Collect: 0.5}, seeded(7))
	require.NoError(t, err)

	var all int
	for i := 0; i < n; i++ {
		a := s.Sample()
		if a.Like && a.Reply && a.Collect {
			all++
		}
	}
	// P(все три) = 0.125 при независимых бросках.
	assert.InDelta(t, 0.125*n, float64(all), 5*math.Sqrt(n*0.125*0.875))
}

func TestSampleIsDeterministicForSeed(t *testing.T) {
	probs := Probabilities{Like: 0.3, Reply: 0.3, Collect: 0.3}
	a, err := New(probs, seeded(1))
	require.NoError(t, err)
	b, err := New(probs, seeded(1))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Sample(), b.Sample())
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	cases := []Probabilities{
		{Like: -0.1},
		{Reply: 1.5},
		{Collect: math.NaN()},
	}
	for _, probs := range cases {
		_, err := New(probs, nil)
		require.ErrorIs(t, err, domain.ErrConfigInvalid)
	}
}
