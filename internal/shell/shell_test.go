package shell_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/session"
	"github.com/db47h/logicsim/internal/shell"
	"github.com/db47h/logicsim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) (*shell.Shell, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	s, err := session.New(ctx, store.NewMemory(), "shell", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	var b bytes.Buffer
	return shell.New(ctx, s, &b), &b
}

func TestParseArgs(t *testing.T) {
	td := []struct {
		in  string
		out []string
	}{
		{"", nil},
		{"  sim  ", []string{"sim"}},
		{"define \"My Gate\" gate_0  input_1", []string{"define", "My Gate", "gate_0", "input_1"}},
		{"move\tgate_0 1 2", []string{"move", "gate_0", "1", "2"}},
	}
	for _, d := range td {
		assert.Equal(t, d.out, shell.ParseArgs(d.in), "%q", d.in)
	}
}

const script = `
# half adder
input 0 0 0
input 0 0 50
gate AND 100 0
gate XOR 100 50
output 200 0
output 200 50
wire input_0_out0 gate_2_in0
wire input_1_out0 gate_2_in1
wire input_0_out0 gate_3_in0
wire input_1_out0 gate_3_in1
wire gate_2_out0 output_4_in0
wire gate_3_out0 output_5_in0
toggle input_0
`

func TestShell_script(t *testing.T) {
	sh, b := newShell(t)
	require.NoError(t, sh.RunScript(strings.NewReader(script)))
	assert.Contains(t, b.String(), "conn_input_0_out0_gate_2_in0\n")

	b.Reset()
	require.NoError(t, sh.Exec("show"))
	out := b.String()
	assert.Contains(t, out, "input_0 input = 1 @ 0,0\n")
	assert.Contains(t, out, "gate_3 gate XOR @ 100,50\n")
	assert.Contains(t, out, "output_4 output = 0 @ 200,0\n")
	assert.Contains(t, out, "output_5 output = 1 @ 200,50\n")
	assert.Contains(t, out, "gate_2_out0 -> output_4_in0\n")

	b.Reset()
	require.NoError(t, sh.Exec("show gate_3"))
	assert.Contains(t, b.String(), "gate_3_in1 <- input_1_out0\n")
	assert.Contains(t, b.String(), "gate_3_out0 = 1\n")

	b.Reset()
	require.NoError(t, sh.Exec(`define "HA" input_0 input_1 gate_2 gate_3 output_4 output_5`))
	assert.Equal(t, "HA: 2 input(s), 2 output(s), 2 part(s)\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("place HA 300 300"))
	id := strings.TrimSpace(b.String())
	assert.True(t, strings.HasPrefix(id, "custom_HA_"), id)

	b.Reset()
	require.NoError(t, sh.Exec("defs"))
	assert.Equal(t, "HA: 2 input(s), 2 output(s)\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("undefine HA"))
	assert.Equal(t, "1 instance(s) removed\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("sim"))
	assert.Equal(t, "rounds: 2, stable: true\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("unwire input_0_out0"))
	assert.Equal(t, "2 connection(s) removed\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("rm gate_2 gate_3"))
	assert.Equal(t, "2 component(s) removed\n", b.String())
}

func TestShell_errors(t *testing.T) {
	sh, _ := newShell(t)
	require.NoError(t, sh.Exec("input"))
	require.NoError(t, sh.Exec("gate NOT"))

	assert.Error(t, sh.Exec("frobnicate"))
	assert.Error(t, sh.Exec("gate"))
	assert.Error(t, sh.Exec("gate XNOR"))
	assert.Error(t, sh.Exec("gate AND 1"))
	assert.Error(t, sh.Exec("input 2"))
	assert.Error(t, sh.Exec("clock soon"))
	assert.ErrorIs(t, sh.Exec("clock 0s"), logicsim.ErrInvalidPeriod)
	assert.ErrorIs(t, sh.Exec("wire gate_1_in0 input_0_out0"), logicsim.ErrInvalidWiring)
	assert.ErrorIs(t, sh.Exec("toggle gate_1"), logicsim.ErrWrongKind)
	assert.ErrorIs(t, sh.Exec("define Empty gate_1"), logicsim.ErrEmptyInterface)
	assert.ErrorIs(t, sh.Exec("place Nope"), logicsim.ErrUnknownDefinition)
	assert.ErrorIs(t, sh.Exec("show nope"), logicsim.ErrUnknownComponent)
	assert.ErrorIs(t, sh.Exec("quit"), shell.ErrQuit)

	err := sh.RunScript(strings.NewReader("sim\ntoggle gate_1\nsim\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.NoError(t, sh.RunScript(strings.NewReader("sim\nexit\nfrobnicate\n")))
}

func TestShell_lib(t *testing.T) {
	sh, b := newShell(t)
	require.NoError(t, sh.Exec("lib"))
	assert.Contains(t, b.String(), "installed: XNOR, MUX, DMUX, HalfAdder, FullAdder, SRLatch")

	b.Reset()
	require.NoError(t, sh.Exec("place FullAdder"))
	require.NoError(t, sh.Exec("input 1"))
	require.NoError(t, sh.Exec("dup 0 100 input_1"))
	assert.Equal(t, "custom_FullAdder_0\ninput_1\ninput_2\n", b.String())

	b.Reset()
	require.NoError(t, sh.Exec("help"))
	assert.Contains(t, b.String(), "  wire ")
	b.Reset()
	require.NoError(t, sh.Exec("help place"))
	assert.True(t, strings.HasPrefix(b.String(), "Syntax: place <name> [x y]\n"))

	require.NoError(t, sh.Exec("reset"))
	b.Reset()
	require.NoError(t, sh.Exec("defs"))
	assert.Empty(t, b.String())
}
