package modal

import (
	"errors"
	"math"
	"reflect"
	"testing"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"

	"github.com/cwbudde/algo-modal/vec"
)

func TestStringEigenvalues(t *testing.T) {
	s, err := NewString[float64](5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dim() != 1 || s.Modes() != 5 {
		t.Fatalf("Dim/Modes = %d/%d", s.Dim(), s.Modes())
	}
	for i := 0; i < 5; i++ {
		want := float64(i+1) * math.Pi / 2
		if got := s.EigenvalueSqrt(i); math.Abs(got-want) > 1e-12 {
			t.Fatalf("EigenvalueSqrt(%d) = %v, want %v", i, got, want)
		}
	}
	if got := s.EigenFunction(0, vec.New(1.0)); math.Abs(got-1) > 1e-12 {
		t.Fatalf("fundamental at centre = %v, want 1", got)
	}
	for _, x := range []float64{0, 2} {
		if got := s.EigenFunction(3, vec.New(x)); math.Abs(got) > 1e-12 {
			t.Fatalf("mode 3 at fixed end %v = %v", x, got)
		}
	}
}

func TestStringRejectsBadArguments(t *testing.T) {
	if _, err := NewString[float64](0, 1); !errors.Is(err, ErrModeCount) {
		t.Fatalf("expected ErrModeCount, got %v", err)
	}
	if _, err := NewString[float64](4, 0); !errors.Is(err, ErrLength) {
		t.Fatalf("expected ErrLength, got %v", err)
	}
	s := newTestString(t, 4)
	if err := s.SetLength(-1); !errors.Is(err, ErrLength) {
		t.Fatalf("expected ErrLength, got %v", err)
	}
	if s.Length() != 1 {
		t.Fatalf("rejected SetLength changed length to %v", s.Length())
	}
}

// The ratios of the lowest finite-difference Dirichlet eigenvalues converge
// to the harmonic series of the continuous string.
func TestStringMatchesFiniteDifferenceSpectrum(t *testing.T) {
	const n = 256
	fd := pdefd.Eigenvalues(n, 1.0/float64(n+1), pdepoisson.Dirichlet)
	if len(fd) != n {
		t.Fatalf("unexpected eigenvalue count %d", len(fd))
	}
	s := newTestString(t, 4)
	base := math.Sqrt(fd[0])
	for k := 1; k < 4; k++ {
		gotRatio := math.Sqrt(fd[k]) / base
		wantRatio := s.EigenvalueSqrt(k) / s.EigenvalueSqrt(0)
		if math.Abs(gotRatio-wantRatio) > 1e-3 {
			t.Fatalf("mode %d: fd ratio %v, string ratio %v", k, gotRatio, wantRatio)
		}
	}
}

func TestSphereQuantumNumbers(t *testing.T) {
	want := [][2]int{{0, 0}, {1, -1}, {1, 0}, {1, 1}, {2, -2}, {2, -1}, {2, 0}, {2, 1}, {2, 2}, {3, -3}}
	for i, w := range want {
		if l, m := SphereQuantumNumbers(i); l != w[0] || m != w[1] {
			t.Fatalf("mode %d: got (%d,%d), want (%d,%d)", i, l, m, w[0], w[1])
		}
	}
	for i := 0; i < 24; i++ {
		l, m := SphereQuantumNumbers(i)
		if l*l > i || i >= (l+1)*(l+1) || m < -l || m > l {
			t.Fatalf("mode %d: invalid (l,m)=(%d,%d)", i, l, m)
		}
	}
}

func TestSphereEigenFunction(t *testing.T) {
	s, err := NewSphere[float64](9)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dim() != 3 {
		t.Fatalf("Dim() = %d", s.Dim())
	}

	cases := []struct {
		mode int
		x    vec.Vector[float64]
		want float64
	}{
		{0, vec.New(0.7, 1.1, 2.0), 1 / math.Sqrt(4*math.Pi)},
		{2, vec.New(1.0, 0.0, 0.0), math.Sqrt(3 / (4 * math.Pi))},
		{1, vec.New(1.0, math.Pi/2, 0.0), -math.Sqrt(3) / (2 * math.Sqrt(2*math.Pi))},
		{2, vec.New(0.5, 0.0, 0.0), 0.5 * math.Sqrt(3/(4*math.Pi))},
	}
	for _, c := range cases {
		if got := s.EigenFunction(c.mode, c.x); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("mode %d at %v: got %v, want %v", c.mode, c.x, got, c.want)
		}
	}

	for i := 0; i < s.Modes(); i++ {
		l, _ := s.QuantumNumbers(i)
		if got := s.EigenvalueSqrt(i); got != float64(l*(l+1)) {
			t.Fatalf("EigenvalueSqrt(%d) = %v", i, got)
		}
	}
}

func TestSphereFloat32TracksFloat64(t *testing.T) {
	s64, err := NewSphere[float64](16)
	if err != nil {
		t.Fatal(err)
	}
	s32, err := NewSphere[float32](16)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []vec.Vector[float64]{
		vec.New(1.0, 0.7, 0.3),
		vec.New(0.8, 2.4, 4.1),
		vec.New(1.0, math.Pi/2, 1.0),
	} {
		x32 := vec.New(float32(x.Get(0)), float32(x.Get(1)), float32(x.Get(2)))
		for i := 0; i < s64.Modes(); i++ {
			want := s64.EigenFunction(i, x)
			got := float64(s32.EigenFunction(i, x32))
			if math.Abs(got-want) > 1e-5 {
				t.Fatalf("mode %d at %v: float32 %v, float64 %v", i, x, got, want)
			}
		}
	}
}

func TestSphericalToCartesian(t *testing.T) {
	p := SphericalToCartesian(math.Pi/2, math.Pi/2)
	want := vec.New(0.0, 1.0, 0.0)
	for i := 0; i < 3; i++ {
		if math.Abs(p.Get(i)-want.Get(i)) > 1e-12 {
			t.Fatalf("got %v, want %v", p, want)
		}
	}
}

func TestCubeModesOrdering(t *testing.T) {
	modes, err := CubeModes(6, 2)
	if err != nil {
		t.Fatal(err)
	}
	wantK := [][]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}, {3, 1}, {1, 3}}
	for i, m := range modes {
		if !reflect.DeepEqual(m.K, wantK[i]) {
			t.Fatalf("mode %d: K=%v, want %v", i, m.K, wantK[i])
		}
	}

	big, err := CubeModes(200, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(big[0].K, []int{1, 1, 1}) || math.Abs(big[0].EigenvalueSqrt-math.Sqrt(3)) > 1e-12 {
		t.Fatalf("lowest mode = %+v", big[0])
	}
	for i := 1; i < len(big); i++ {
		if big[i].EigenvalueSqrt < big[i-1].EigenvalueSqrt {
			t.Fatalf("not sorted at %d: %v < %v", i, big[i].EigenvalueSqrt, big[i-1].EigenvalueSqrt)
		}
	}

	again, err := CubeModes(200, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(big, again) {
		t.Fatalf("enumeration is not deterministic")
	}
}

func TestCubeModesOneDimension(t *testing.T) {
	modes, err := CubeModes(5, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range modes {
		if m.K[0] != i+1 || m.EigenvalueSqrt != float64(i+1) {
			t.Fatalf("mode %d = %+v", i, m)
		}
	}
}

func TestCubeModesErrors(t *testing.T) {
	if _, err := CubeModes(0, 2); !errors.Is(err, ErrModeCount) {
		t.Fatalf("expected ErrModeCount, got %v", err)
	}
	if _, err := CubeModes(10, 0); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if _, err := CubeModes(10, vec.MaxDim+1); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if _, err := CubeModes(1_000_000_000, 8); !errors.Is(err, ErrModeCount) {
		t.Fatalf("expected ErrModeCount for oversized table, got %v", err)
	}
}

func TestCubeSetDimension(t *testing.T) {
	c, err := NewCube[float64](10, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if c.Dim() != 2 || c.MaxDim() != 3 {
		t.Fatalf("Dim/MaxDim = %d/%d", c.Dim(), c.MaxDim())
	}
	if err := c.SetDimension(4); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	if c.Dim() != 2 {
		t.Fatalf("failed SetDimension changed dimension to %d", c.Dim())
	}
	if err := c.SetDimension(3); err != nil {
		t.Fatal(err)
	}
	if got := c.EigenvalueSqrt(0); math.Abs(got-math.Sqrt(3)) > 1e-12 {
		t.Fatalf("lowest eigenvalue after SetDimension = %v", got)
	}
	x := vec.New(0.5, 0.5, 0.5)
	if got := c.EigenFunction(0, x); math.Abs(got-1) > 1e-12 {
		t.Fatalf("fundamental at centre = %v", got)
	}
	if k := c.Mode(0).K; !reflect.DeepEqual(k, []int{1, 1, 1}) {
		t.Fatalf("Mode(0).K = %v", k)
	}
}

func TestCustomGeometry(t *testing.T) {
	funcs := []func(vec.Vector[float64]) float64{
		func(x vec.Vector[float64]) float64 { return x.Get(0) },
		func(x vec.Vector[float64]) float64 { return x.Get(1) },
	}
	g, err := NewCustom(2, funcs, []float64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if g.Modes() != 2 || g.Dim() != 2 {
		t.Fatalf("Modes/Dim = %d/%d", g.Modes(), g.Dim())
	}
	e := newTestEngine(t, g, 1)
	e.PinchDelta(vec.New(0.5, 2.0), 1)
	if got := e.Evaluate(vec.New(1.0, 1.0)); got != 2.5 {
		t.Fatalf("Evaluate = %v, want 2.5", got)
	}

	if _, err := NewCustom(2, funcs, []float64{1}); !errors.Is(err, ErrModeCount) {
		t.Fatalf("expected ErrModeCount, got %v", err)
	}
	if _, err := NewCustom(0, funcs, []float64{1, 3}); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}
