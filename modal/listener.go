package modal

import "github.com/cwbudde/algo-modal/vec"

// Listener drives an Engine from fixed listening and striking positions.
// Eigenfunction values at those positions are cached so that the per-sample
// path is two multiply-accumulate loops.
//
// Channels whose position was never set read as zero, and PinchStrike is
// a no-op until a striking position is set.
type Listener[T vec.Float] struct {
	eng      *Engine[T]
	channels int

	listen    []vec.Vector[T]
	listenSet []bool
	strikePos vec.Vector[T]
	strikeSet bool

	// evals[c*modes+i] = φ_i(listen[c])
	evals  []T
	strike []T
}

// NewListener creates an Engine over g and a cache for cfg.Channels
// listening positions. Zero channels means one.
func NewListener[T vec.Float](g Geometry[T], cfg Config) (*Listener[T], error) {
	eng, err := NewEngine(g, cfg)
	if err != nil {
		return nil, err
	}
	ch := cfg.Channels
	if ch == 0 {
		ch = 1
	}
	n := eng.Modes()
	return &Listener[T]{
		eng:       eng,
		channels:  ch,
		listen:    make([]vec.Vector[T], ch),
		listenSet: make([]bool, ch),
		evals:     make([]T, ch*n),
		strike:    make([]T, n),
	}, nil
}

// Engine returns the underlying engine.
func (l *Listener[T]) Engine() *Engine[T] { return l.eng }

// Channels returns the number of listening positions.
func (l *Listener[T]) Channels() int { return l.channels }

// ListeningPosition returns the position of channel c and whether it is set.
func (l *Listener[T]) ListeningPosition(c int) (vec.Vector[T], bool) {
	return l.listen[c], l.listenSet[c]
}

// StrikingPosition returns the striking position and whether it is set.
func (l *Listener[T]) StrikingPosition() (vec.Vector[T], bool) {
	return l.strikePos, l.strikeSet
}

func (l *Listener[T]) checkDim(x vec.Vector[T]) error {
	if d := l.eng.geom.Dim(); x.Dim() != d {
		return &ConfigError{Field: "position", Value: x.Dim(), Err: ErrDimension}
	}
	return nil
}

// SetListeningPositions replaces every listening position.
func (l *Listener[T]) SetListeningPositions(positions []vec.Vector[T]) error {
	if len(positions) != l.channels {
		return &ConfigError{Field: "positions", Value: len(positions), Err: ErrChannels}
	}
	for _, p := range positions {
		if err := l.checkDim(p); err != nil {
			return err
		}
	}
	for c, p := range positions {
		l.setListening(c, p)
	}
	return nil
}

// SetListeningPosition replaces the position of channel c.
func (l *Listener[T]) SetListeningPosition(c int, pos vec.Vector[T]) error {
	if c < 0 || c >= l.channels {
		return &ConfigError{Field: "channel", Value: c, Err: ErrChannels}
	}
	if err := l.checkDim(pos); err != nil {
		return err
	}
	l.setListening(c, pos)
	return nil
}

// SetFirstListeningPosition replaces the position of channel 0.
func (l *Listener[T]) SetFirstListeningPosition(pos vec.Vector[T]) error {
	return l.SetListeningPosition(0, pos)
}

func (l *Listener[T]) setListening(c int, pos vec.Vector[T]) {
	l.listen[c] = pos
	l.listenSet[c] = true
	n := l.eng.Modes()
	row := l.evals[c*n : (c+1)*n]
	for i := range row {
		row[i] = l.eng.geom.EigenFunction(i, pos)
	}
}

// SetStrikingPosition sets where PinchStrike excites the body.
func (l *Listener[T]) SetStrikingPosition(pos vec.Vector[T]) error {
	if err := l.checkDim(pos); err != nil {
		return err
	}
	l.strikePos = pos
	l.strikeSet = true
	for i := range l.strike {
		l.strike[i] = l.eng.geom.EigenFunction(i, pos)
	}
	return nil
}

// PinchStrike adds amount times the cached striking shape to every mode.
func (l *Listener[T]) PinchStrike(amount T) {
	re := l.eng.amps.re
	for i, phi := range l.strike {
		re[i] += phi * amount
	}
}

func (l *Listener[T]) channel(c int) T {
	n := len(l.strike)
	row := l.evals[c*n : (c+1)*n]
	var sum T
	for i, re := range l.eng.amps.re {
		sum += re * row[i]
	}
	return sum
}

// NextFrame advances one step and writes every channel into dst, which
// must hold at least Channels values.
func (l *Listener[T]) NextFrame(dst []T) {
	dst = dst[:l.channels]
	l.eng.Evolve(l.eng.deltaT)
	for c := range dst {
		dst[c] = l.channel(c)
	}
}

// NextFrameWithInput strikes with amount, then behaves like NextFrame.
func (l *Listener[T]) NextFrameWithInput(dst []T, amount T) {
	l.PinchStrike(amount)
	l.NextFrame(dst)
}

// NextFirstChannel advances one step and returns channel 0.
func (l *Listener[T]) NextFirstChannel() T {
	l.eng.Evolve(l.eng.deltaT)
	return l.channel(0)
}

// NextFirstChannelWithInput strikes with amount, then behaves like
// NextFirstChannel.
func (l *Listener[T]) NextFirstChannelWithInput(amount T) T {
	l.PinchStrike(amount)
	return l.NextFirstChannel()
}

// Silence zeroes the engine's amplitudes.
func (l *Listener[T]) Silence() { l.eng.Silence() }

// Reset silences the engine and resets its time.
func (l *Listener[T]) Reset() { l.eng.Reset() }

// Retune refreshes rotation factors and cached eigenfunction values after
// the geometry changed shape without changing its mode layout (for example
// String.SetLength). The sound keeps ringing.
func (l *Listener[T]) Retune() {
	l.eng.RefreshModes()
	for c := range l.listen {
		if l.listenSet[c] {
			l.setListening(c, l.listen[c])
		}
	}
	if l.strikeSet {
		if err := l.SetStrikingPosition(l.strikePos); err != nil {
			l.clearStrike()
		}
	}
}

// Invalidate must follow a change of the geometry's mode layout (for
// example Cube.SetDimension). The engine is silenced, rotation factors are
// refreshed and every position is forgotten, so channels read zero until
// positions of the new dimension are set.
func (l *Listener[T]) Invalidate() {
	l.eng.Silence()
	l.eng.RefreshModes()
	clear(l.evals)
	clear(l.listenSet)
	clear(l.listen)
	l.clearStrike()
}

func (l *Listener[T]) clearStrike() {
	clear(l.strike)
	l.strikeSet = false
	l.strikePos = vec.Vector[T]{}
}
