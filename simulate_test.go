package logicsim_test

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
	"time"

	ls "github.com/db47h/logicsim"
	"github.com/db47h/logicsim/logictest"
)

func Test_gates(t *testing.T) {
	td := []struct {
		gate   ls.GateType
		result [][]bool
	}{
		{ls.AND, [][]bool{{false, false, false, true}}},
		{ls.OR, [][]bool{{false, true, true, true}}},
		{ls.XOR, [][]bool{{false, true, true, false}}},
		{ls.NAND, [][]bool{{true, true, true, false}}},
		{ls.NOR, [][]bool{{true, false, false, false}}},
		{ls.NOT, [][]bool{{true, false}}},
	}
	for _, d := range td {
		t.Run(d.gate.String(), func(t *testing.T) {
			c := ls.New()
			logictest.TruthTable(t, c, gate(t, c, d.gate, ls.Point{X: 100}), d.result)
		})
	}
}

func TestSimulate_unconnectedInput(t *testing.T) {
	td := []struct {
		gate ls.GateType
		exp  bool
	}{
		{ls.AND, false},
		{ls.OR, true},
		{ls.NAND, true},
		{ls.XOR, true},
	}
	for _, d := range td {
		t.Run(d.gate.String(), func(t *testing.T) {
			c := ls.New()
			in := c.AddInput(ls.Point{}, true)
			g := gate(t, c, d.gate, ls.Point{X: 100})
			out := c.AddOutput(ls.Point{X: 200})
			wire(t, c, in, 0, g, 0)
			wire(t, c, g, 0, out, 0)
			c.Simulate()
			if out.Level != ls.LevelOf(d.exp) {
				t.Fatalf("%s(1, unconnected) = %v, got %v", d.gate, ls.LevelOf(d.exp), out.Level)
			}
		})
	}

	// a gate with no input connected at all
	c := ls.New()
	nor := gate(t, c, ls.NOR, ls.Point{})
	c.Simulate()
	if v, ok := c.Value(nor.Outputs[0].ID); !ok || !v {
		t.Fatalf("NOR(unconnected, unconnected) = %v, %v", v, ok)
	}
}

func TestSimulate_unconnectedOutput(t *testing.T) {
	c := ls.New()
	out := c.AddOutput(ls.Point{})
	if out.Level != ls.Unknown {
		t.Fatalf("expected unknown level, got %v", out.Level)
	}
	r := c.Simulate()
	if !r.Stable || r.Rounds != 1 {
		t.Fatalf("empty circuit report %+v", r)
	}
	if out.Level != ls.Low {
		t.Fatalf("expected 0, got %v", out.Level)
	}
}

func TestSimulate_inputsUntouched(t *testing.T) {
	c := ls.New()
	in := c.AddInput(ls.Point{}, true)
	clk, err := c.AddComponent(ls.Spec{Kind: ls.KindClock, Period: time.Second, Value: true})
	if err != nil {
		t.Fatal(err)
	}
	not := gate(t, c, ls.NOT, ls.Point{X: 100})
	and := gate(t, c, ls.AND, ls.Point{X: 200})
	wire(t, c, in, 0, not, 0)
	wire(t, c, not, 0, and, 0)
	wire(t, c, clk, 0, and, 1)
	c.Simulate()
	if !in.Value || !clk.Value {
		t.Fatal("simulation modified an input terminal or a clock")
	}
	if v, _ := c.Value(clk.Outputs[0].ID); !v {
		t.Fatal("clock value not seeded")
	}
}

// buildChain builds a three input circuit out = (a AND b) XOR c.
func buildChain(t *testing.T, a, b, x bool) (*ls.Circuit, *ls.Component) {
	c := ls.New()
	ia, ib, ix := c.AddInput(ls.Point{}, a), c.AddInput(ls.Point{Y: 50}, b), c.AddInput(ls.Point{Y: 100}, x)
	and := gate(t, c, ls.AND, ls.Point{X: 100})
	xor := gate(t, c, ls.XOR, ls.Point{X: 200})
	out := c.AddOutput(ls.Point{X: 300})
	// wire the tail first so that insertion order differs from signal order.
	wire(t, c, xor, 0, out, 0)
	wire(t, c, and, 0, xor, 0)
	wire(t, c, ix, 0, xor, 1)
	wire(t, c, ia, 0, and, 0)
	wire(t, c, ib, 0, and, 1)
	return c, out
}

func TestSimulate_idempotent(t *testing.T) {
	f := func(a, b, x bool) bool {
		c, out := buildChain(t, a, b, x)
		r := c.Simulate()
		v1, l1 := c.Values(), out.Level
		c.Simulate()
		return r.Stable && reflect.DeepEqual(v1, c.Values()) && l1 == out.Level && (l1 == ls.High) == ((a && b) != x)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSimulate_deterministic(t *testing.T) {
	f := func(a, b, x bool) bool {
		c1, _ := buildChain(t, a, b, x)
		c2, _ := buildChain(t, a, b, x)
		r1, r2 := c1.Simulate(), c2.Simulate()
		return reflect.DeepEqual(r1, r2) && reflect.DeepEqual(c1.Values(), c2.Values())
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSimulate_feedback(t *testing.T) {
	// OR gate feeding back into itself through a buffer.
	c := ls.New()
	in := c.AddInput(ls.Point{}, true)
	or := gate(t, c, ls.OR, ls.Point{X: 100})
	buf := gate(t, c, ls.OR, ls.Point{X: 200})
	out := c.AddOutput(ls.Point{X: 300})
	wire(t, c, in, 0, or, 0)
	wire(t, c, or, 0, buf, 0)
	wire(t, c, buf, 0, or, 1)
	wire(t, c, or, 0, out, 0)

	r := c.Simulate()
	if !r.Stable || out.Level != ls.High {
		t.Fatalf("report %+v, level %v", r, out.Level)
	}
	// gate outputs are seeded with 0 on every pass
	if err := c.ToggleInput(in.ID); err != nil {
		t.Fatal(err)
	}
	r = c.Simulate()
	if !r.Stable || out.Level != ls.Low {
		t.Fatalf("report %+v, level %v", r, out.Level)
	}
}

func TestSimulate_latch(t *testing.T) {
	c := ls.New()
	s, r := c.AddInput(ls.Point{}, false), c.AddInput(ls.Point{Y: 100}, false)
	n0 := gate(t, c, ls.NOR, ls.Point{X: 100})
	n1 := gate(t, c, ls.NOR, ls.Point{X: 100, Y: 100})
	q := c.AddOutput(ls.Point{X: 200})
	wire(t, c, r, 0, n0, 0)
	wire(t, c, n1, 0, n0, 1)
	wire(t, c, s, 0, n1, 0)
	wire(t, c, n0, 0, n1, 1)
	wire(t, c, n0, 0, q, 0)

	td := []struct {
		s, r bool
		q    ls.Level
	}{
		{false, false, ls.High},
		{true, false, ls.High},
		{false, true, ls.Low},
		{true, true, ls.Low},
	}
	for _, d := range td {
		if err := c.SetInput(s.ID, d.s); err != nil {
			t.Fatal(err)
		}
		if err := c.SetInput(r.ID, d.r); err != nil {
			t.Fatal(err)
		}
		if rep := c.Simulate(); !rep.Stable {
			t.Fatalf("s=%v, r=%v: unstable", d.s, d.r)
		}
		if q.Level != d.q {
			t.Errorf("s=%v, r=%v: q = %v, got %v", d.s, d.r, d.q, q.Level)
		}
	}
}

// ring builds a NOT gate feeding back into itself through a buffer.
func ring(t *testing.T, c *ls.Circuit) (not, buf *ls.Component) {
	not = gate(t, c, ls.NOT, ls.Point{X: 100})
	buf = gate(t, c, ls.OR, ls.Point{X: 200})
	wire(t, c, not, 0, buf, 0)
	wire(t, c, buf, 0, not, 0)
	return not, buf
}

func TestSimulate_oscillator(t *testing.T) {
	var b bytes.Buffer
	c := ls.New(ls.WithLogger(slog.New(slog.NewTextHandler(&b, nil))))
	ring(t, c)
	r := c.Simulate()
	if r.Stable || r.Rounds != ls.DefaultMaxRounds {
		t.Fatalf("report %+v", r)
	}
	if !strings.Contains(b.String(), "level=WARN") {
		t.Fatalf("no warning logged: %q", b.String())
	}

	c = ls.New(ls.WithMaxRounds(7))
	ring(t, c)
	if r = c.Simulate(); r.Stable || r.Rounds != 7 {
		t.Fatalf("report %+v", r)
	}
}

func TestSimulate_innerCap(t *testing.T) {
	var b bytes.Buffer
	log := slog.New(slog.NewTextHandler(&b, nil))
	c := ls.New(ls.WithLogger(log), ls.WithMaxInnerRounds(10))
	_, buf := ring(t, c)
	out := c.AddOutput(ls.Point{X: 300})
	wire(t, c, buf, 0, out, 0)
	if _, err := c.DefineComposite("Ring", c.Components()[0].ID, buf.ID, out.ID); err != nil {
		t.Fatal(err)
	}
	c.RemoveComponents(c.Components()[0].ID, buf.ID, out.ID)

	inst, err := c.Instantiate("Ring", ls.Point{})
	if err != nil {
		t.Fatal(err)
	}
	r := c.Simulate()
	if len(r.Unstable) != 1 || r.Unstable[0] != inst.ID {
		t.Fatalf("report %+v", r)
	}
	if n := strings.Count(b.String(), "max internal iterations"); n != 1 {
		t.Fatalf("expected a single warning, got %d: %q", n, b.String())
	}
}
