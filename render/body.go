package render

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

const bodyPartSize = 128

// Body convolves rendered channels with an impulse response so the modes
// sound through a resonating body or room. Every channel uses the same
// response; Mix blends the dry and convolved signals.
type Body struct {
	ir  []float32
	mix float32

	ola   []*dspconv.StreamingOverlapAddT[float32, complex64]
	block []float32
	out   []float32
}

// NewBody builds a convolver for ir. mix must be in [0, 1]; 1 is fully wet.
func NewBody(ir []float32, mix float64) (*Body, error) {
	if len(ir) == 0 {
		return nil, fmt.Errorf("render: empty body impulse response")
	}
	if mix < 0 || mix > 1 {
		return nil, fmt.Errorf("render: body mix must be in [0,1], got %g", mix)
	}
	return &Body{
		ir:    append([]float32(nil), ir...),
		mix:   float32(mix),
		block: make([]float32, bodyPartSize),
		out:   make([]float32, bodyPartSize),
	}, nil
}

// Len returns the impulse response length in samples.
func (b *Body) Len() int { return len(b.ir) }

// Reset clears the convolution tails of every channel.
func (b *Body) Reset() {
	for _, o := range b.ola {
		o.Reset()
	}
}

func (b *Body) ensureChannels(channels int) error {
	for len(b.ola) < channels {
		o, err := dspconv.NewStreamingOverlapAdd32(b.ir, bodyPartSize)
		if err != nil {
			return fmt.Errorf("render: body convolver: %w", err)
		}
		b.ola = append(b.ola, o)
	}
	return nil
}

// Process convolves a whole interleaved buffer in place, starting from a
// silent state. The tail past the end of the buffer is dropped.
func (b *Body) Process(samples []float32, channels int) error {
	if channels < 1 || len(samples)%channels != 0 {
		return fmt.Errorf("render: %d samples do not hold %d channels", len(samples), channels)
	}
	if err := b.ensureChannels(channels); err != nil {
		return err
	}
	b.Reset()
	frames := len(samples) / channels
	dry, wet := 1-b.mix, b.mix
	for c := 0; c < channels; c++ {
		for processed := 0; processed < frames; processed += bodyPartSize {
			n := min(bodyPartSize, frames-processed)
			clear(b.block)
			for i := 0; i < n; i++ {
				b.block[i] = samples[(processed+i)*channels+c]
			}
			if err := b.ola[c].ProcessBlockTo(b.out, b.block); err != nil {
				return fmt.Errorf("render: body convolver: %w", err)
			}
			for i := 0; i < n; i++ {
				idx := (processed+i)*channels + c
				samples[idx] = dry*samples[idx] + wet*b.out[i]
			}
		}
	}
	return nil
}
