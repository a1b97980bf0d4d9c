// Package neural provides the per-agent action-value networks.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInputSize  = errors.New("observation has wrong length")
	ErrTargetSize = errors.New("target has wrong length")
	ErrNonFinite  = errors.New("network produced a non-finite value")
)

// ValueApproximator maps an observation to one value estimate per action.
type ValueApproximator interface {
	// Predict returns the action values for obs. The result is owned by the caller.
	Predict(obs []float64) ([]float64, error)
	// Update takes one gradient step moving Predict(obs) toward target and
	// returns the squared error before the step.
	Update(obs, target []float64) (float64, error)
}

// layer is one fully-connected layer: out = W·in + B.
type layer struct {
	W *mat.Dense    // out x in
	B *mat.VecDense // out
}

// scratch holds the transient buffers of one forward/backward pass.
type scratch struct {
	acts   []*mat.VecDense // acts[0] is the input, acts[i+1] is the output of layer i
	deltas []*mat.VecDense // deltas[i] is dLoss/dz for layer i
}

// QNet is a feedforward network with tanh hidden layers and a linear output layer.
// It is not safe for concurrent use.
type QNet struct {
	sizes  []int
	layers []layer
	lr     float64
	pool   sync.Pool
}

// NewQNet creates a randomly initialized network. sizes lists every layer width
// from inputs to outputs, e.g. [9, 16, 5].
func NewQNet(rng *rand.Rand, sizes []int, learningRate float64) (*QNet, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("qnet needs at least input and output sizes, got %v", sizes)
	}
	for _, n := range sizes {
		if n < 1 {
			return nil, fmt.Errorf("qnet layer sizes must be >= 1, got %v", sizes)
		}
	}

	q := &QNet{
		sizes:  append([]int(nil), sizes...),
		layers: make([]layer, len(sizes)-1),
		lr:     learningRate,
	}

	// He initialization
	for i := range q.layers {
		in, out := sizes[i], sizes[i+1]
		scale := math.Sqrt(2.0 / float64(in))
		w := make([]float64, out*in)
		for j := range w {
			w[j] = rng.NormFloat64() * scale
		}
		q.layers[i] = layer{
			W: mat.NewDense(out, in, w),
			B: mat.NewVecDense(out, nil),
		}
	}

	q.pool.New = func() any { return q.newScratch() }
	return q, nil
}

func (q *QNet) newScratch() *scratch {
	s := &scratch{
		acts:   make([]*mat.VecDense, len(q.sizes)),
		deltas: make([]*mat.VecDense, len(q.layers)),
	}
	for i, n := range q.sizes {
		s.acts[i] = mat.NewVecDense(n, nil)
	}
	for i := range q.layers {
		s.deltas[i] = mat.NewVecDense(q.sizes[i+1], nil)
	}
	return s
}

// NumInputs returns the expected observation length.
func (q *QNet) NumInputs() int { return q.sizes[0] }

// NumOutputs returns the number of action values produced.
func (q *QNet) NumOutputs() int { return q.sizes[len(q.sizes)-1] }

// LearningRate returns the SGD step size.
func (q *QNet) LearningRate() float64 { return q.lr }

// forward runs the network on obs, leaving every activation in s.
func (q *QNet) forward(s *scratch, obs []float64) error {
	if len(obs) != q.NumInputs() {
		return fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(obs), q.NumInputs())
	}
	copy(s.acts[0].RawVector().Data, obs)

	last := len(q.layers) - 1
	for i, l := range q.layers {
		z := s.acts[i+1]
		z.MulVec(l.W, s.acts[i])
		z.AddVec(z, l.B)
		if i == last {
			break
		}
		data := z.RawVector().Data
		for j, v := range data {
			data[j] = math.Tanh(v)
		}
	}

	for _, v := range s.acts[len(s.acts)-1].RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

// Predict returns one value per action for obs.
func (q *QNet) Predict(obs []float64) ([]float64, error) {
	s := q.pool.Get().(*scratch)
	defer q.pool.Put(s)

	if err := q.forward(s, obs); err != nil {
		return nil, err
	}
	out := make([]float64, q.NumOutputs())
	copy(out, s.acts[len(s.acts)-1].RawVector().Data)
	return out, nil
}

// Update performs one SGD step on 0.5*||Predict(obs) - target||² and returns
// the mean squared error measured before the step.
func (q *QNet) Update(obs, target []float64) (float64, error) {
	if len(target) != q.NumOutputs() {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrTargetSize, len(target), q.NumOutputs())
	}

	s := q.pool.Get().(*scratch)
	defer q.pool.Put(s)

	if err := q.forward(s, obs); err != nil {
		return 0, err
	}

	// Output delta for a linear layer is the prediction error.
	last := len(q.layers) - 1
	out := s.acts[last+1].RawVector().Data
	delta := s.deltas[last]
	dd := delta.RawVector().Data
	var sq float64
	for j := range dd {
		dd[j] = out[j] - target[j]
		sq += dd[j] * dd[j]
	}
	loss := sq / float64(len(dd))

	for i := last; i >= 0; i-- {
		l := q.layers[i]
		in := s.acts[i]

		// Propagate through the pre-update weights before stepping them.
		if i > 0 {
			prev := s.deltas[i-1]
			prev.MulVec(l.W.T(), s.deltas[i])
			pd := prev.RawVector().Data
			a := in.RawVector().Data
			for j := range pd {
				pd[j] *= 1 - a[j]*a[j] // tanh'
			}
		}

		l.W.RankOne(l.W, -q.lr, s.deltas[i], in)
		l.B.AddScaledVec(l.B, -q.lr, s.deltas[i])
	}

	return loss, nil
}
