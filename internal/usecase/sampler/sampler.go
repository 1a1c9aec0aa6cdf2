package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"linuxdo-keepalive/internal/domain"
)

// Probabilities задаёт вероятности действий для одного визита.
type Probabilities struct {
	Like    float64
	Reply   float64
	Collect float64
}

// Validate проверяет, что все вероятности лежат в [0, 1].
func (p Probabilities) Validate() error {
	for name, v := range map[string]float64{"like": p.Like, "reply": p.Reply, "collect": p.Collect} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: вероятность %s=%v вне [0,1]", domain.ErrConfigInvalid, name, v)
		}
	}
	return nil
}

// Sampler независимо разыгрывает лайк, ответ и закладку.
type Sampler struct {
	probs Probabilities
	rnd   *rand.Rand
}

// New создаёт сэмплер. rnd не потокобезопасен, сэмплер используется из одной горутины.
func New(probs Probabilities, rnd *rand.Rand) (*Sampler, error) {
	if err := probs.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{probs: probs, rnd: rnd}, nil
}

// Sample делает три независимых броска.
func (s *Sampler) Sample() domain.Actions {
	return domain.Actions{
		Like:    s.rnd.Float64() < s.probs.Like,
		Reply:   s.rnd.Float64() < s.probs.Reply,
		Collect: s.rnd.Float64() < s.probs.Collect,
	}
}
