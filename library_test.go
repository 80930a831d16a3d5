package logicsim_test

import (
	"encoding/json"
	"testing"

	ls "github.com/db47h/logicsim"
	"github.com/db47h/logicsim/logiclib"
	"github.com/db47h/logicsim/logictest"
	"github.com/pkg/errors"
)

func TestParseGateType(t *testing.T) {
	for _, g := range ls.GateTypes() {
		p, err := ls.ParseGateType(" " + g.String() + " ")
		if err != nil || p != g {
			t.Errorf("ParseGateType(%s) = %v, %v", g, p, err)
		}
	}
	if g, err := ls.ParseGateType("nand"); err != nil || g != ls.NAND {
		t.Errorf("ParseGateType(nand) = %v, %v", g, err)
	}
	if _, err := ls.ParseGateType("XNOR"); !errors.Is(err, ls.ErrInvalidGate) {
		t.Errorf("expected invalid gate, got %v", err)
	}
	if s := ls.GateType(0).String(); s != "GateType(0)" {
		t.Errorf("bad string for invalid gate: %s", s)
	}
}

func TestMarshalDefinitions(t *testing.T) {
	c := ls.New()
	defineAnd(t, c)
	// nested definition
	a := c.AddInput(ls.Point{}, false)
	and, err := c.Instantiate("MyAnd", ls.Point{X: 100})
	if err != nil {
		t.Fatal(err)
	}
	out := c.AddOutput(ls.Point{X: 200})
	wire(t, c, a, 0, and, 0)
	wire(t, c, and, 0, out, 0)
	if _, err = c.DefineComposite("Zero", a.ID, and.ID, out.ID); err != nil {
		t.Fatal(err)
	}

	data, err := ls.MarshalDefinitions(c.Definitions())
	if err != nil {
		t.Fatal(err)
	}
	defs, err := ls.UnmarshalDefinitions(data)
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	if len(defs) != 2 || defs[0].Name != "MyAnd" || defs[1].Name != "Zero" {
		t.Fatalf("bad definitions %v", defs)
	}
	again, err := ls.MarshalDefinitions(defs)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(data) {
		t.Fatalf("round trip mismatch:\n%s\n%s", data, again)
	}

	h := ls.New()
	if err = h.LoadDefinitions(defs); err != nil {
		t.Fatal(err)
	}
	i1, err := h.Instantiate("MyAnd", ls.Point{})
	if err != nil {
		t.Fatal(err)
	}
	logictest.TruthTable(t, h, i1, [][]bool{{false, false, false, true}})
	i2, err := h.Instantiate("Zero", ls.Point{Y: 200})
	if err != nil {
		t.Fatal(err)
	}
	logictest.TruthTable(t, h, i2, [][]bool{{false, false}})

	if data, err = ls.MarshalDefinitions(nil); err != nil || string(data) != "[]" {
		t.Fatalf("MarshalDefinitions(nil) = %s, %v", data, err)
	}
}

func TestUnmarshalDefinitions_corrupt(t *testing.T) {
	c := ls.New()
	d := defineAnd(t, c)
	good, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	td := []struct {
		name string
		data string
	}{
		{"garbage", "not json"},
		{"object", `{"name": "foo"}`},
		{"null", `[null]`},
		{"empty_name", `[{"name": "", "inputs": [{"id": "x"}]}]`},
		{"no_interface", `[{"name": "foo"}]`},
		{"bad_gate", `[{"name": "foo", "inputs": [{"id": "x"}], "parts": [{"id": "g", "kind": "gate", "gate": "XNOR"}]}]`},
		{"bad_kind", `[{"name": "foo", "inputs": [{"id": "x"}], "parts": [{"id": "g", "kind": "input"}]}]`},
		{"missing_nodes", `[{"name": "foo", "inputs": [{"id": "x"}], "parts": [{"id": "g", "kind": "gate", "gate": "AND"}]}]`},
		{"bad_port", `[{"name": "foo", "inputs": [{"id": "x", "node": "nowhere"}]}]`},
		{"duplicate", "[" + string(good) + "," + string(good) + "]"},
	}
	for _, x := range td {
		t.Run(x.name, func(t *testing.T) {
			defs, err := ls.UnmarshalDefinitions([]byte(x.data))
			if !errors.Is(err, ls.ErrCorruptDefinitions) {
				t.Fatalf("expected corrupt definitions, got %v", err)
			}
			if defs != nil {
				t.Fatal("partial result returned")
			}
		})
	}

	if _, err = ls.DecodeDefinition(good); err != nil {
		t.Fatal(err)
	}
	if _, err = ls.DecodeDefinition([]byte(`{"name": "x"}`)); !errors.Is(err, ls.ErrCorruptDefinitions) {
		t.Fatalf("expected corrupt definition, got %v", err)
	}
}

func TestLoadDefinitions_atomic(t *testing.T) {
	c := ls.New()
	d := defineAnd(t, c)
	err := c.LoadDefinitions([]*ls.Definition{d, nil})
	if !errors.Is(err, ls.ErrCorruptDefinitions) {
		t.Fatalf("expected corrupt definitions, got %v", err)
	}
	if defs := c.Definitions(); len(defs) != 1 || defs[0] != d {
		t.Fatal("definitions modified on error")
	}
	if err = c.LoadDefinitions(nil); err != nil || len(c.Definitions()) != 0 {
		t.Fatalf("LoadDefinitions(nil) = %v", err)
	}
	if err = c.AddDefinition(d); err != nil {
		t.Fatal(err)
	}
	if err = c.AddDefinition(d); !errors.Is(err, ls.ErrDuplicateDefinition) {
		t.Fatalf("expected duplicate definition, got %v", err)
	}
}

func TestAddDefinitions_atomic(t *testing.T) {
	c := ls.New()
	and := defineAnd(t, ls.New())
	xnor, mux := logiclib.Xnor(), logiclib.Mux()
	if err := c.AddDefinitions(mux); err != nil {
		t.Fatal(err)
	}
	td := []struct {
		name string
		defs []*ls.Definition
		err  error
	}{
		{"existing", []*ls.Definition{xnor, mux}, ls.ErrDuplicateDefinition},
		{"batch_dup", []*ls.Definition{xnor, and, xnor}, ls.ErrCorruptDefinitions},
		{"null", []*ls.Definition{xnor, nil}, ls.ErrCorruptDefinitions},
	}
	for _, d := range td {
		if err := c.AddDefinitions(d.defs...); !errors.Is(err, d.err) {
			t.Errorf("%s: expected %v, got %v", d.name, d.err, err)
		}
		if defs := c.Definitions(); len(defs) != 1 || defs[0] != mux {
			t.Fatalf("%s: definitions modified on error", d.name)
		}
	}
	if err := c.AddDefinitions(xnor, and); err != nil {
		t.Fatal(err)
	}
	if n := len(c.Definitions()); n != 3 {
		t.Fatalf("expected 3 definitions, got %d", n)
	}
}
