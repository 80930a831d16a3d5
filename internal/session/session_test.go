package session_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/session"
	"github.com/db47h/logicsim/internal/store"
	"github.com/db47h/logicsim/logiclib"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, st store.Store) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), st, "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func level(s *session.Session, id logicsim.ComponentID) (l logicsim.Level) {
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		l = c.Component(id).Level
	})
	return l
}

func outNode(s *session.Session, id logicsim.ComponentID, i int) (n logicsim.NodeID) {
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) { n = c.Component(id).Outputs[i].ID })
	return n
}

func inNode(s *session.Session, id logicsim.ComponentID, i int) (n logicsim.NodeID) {
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) { n = c.Component(id).Inputs[i].ID })
	return n
}

func TestSession_edit(t *testing.T) {
	s := newSession(t, store.NewMemory())
	in, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindInput})
	require.NoError(t, err)
	not, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindGate, Gate: logicsim.NOT})
	require.NoError(t, err)
	out, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindOutput})
	require.NoError(t, err)
	assert.Equal(t, logicsim.Low, level(s, out), "outputs are resolved on every edit")

	_, err = s.Connect(outNode(s, in, 0), inNode(s, not, 0))
	require.NoError(t, err)
	_, err = s.Connect(outNode(s, not, 0), inNode(s, out, 0))
	require.NoError(t, err)
	assert.Equal(t, logicsim.High, level(s, out))

	require.NoError(t, s.Toggle(in))
	assert.Equal(t, logicsim.Low, level(s, out))
	assert.ErrorIs(t, s.Toggle(not), logicsim.ErrWrongKind)

	_, err = s.Connect(outNode(s, in, 0), inNode(s, out, 0))
	assert.ErrorIs(t, err, logicsim.ErrInvalidWiring)

	assert.Equal(t, 1, s.Disconnect(inNode(s, out, 0)))
	assert.Equal(t, logicsim.Low, level(s, out))

	dup, err := s.Duplicate(logicsim.Point{X: 100, Y: 100}, in, not, out)
	require.NoError(t, err)
	require.Len(t, dup, 3)
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Equal(t, logicsim.Point{X: 110, Y: 110}, c.Component(dup[1]).Pos)
		assert.Equal(t, logicsim.NOT, c.Component(dup[1]).Gate)
		assert.True(t, c.Component(dup[0]).Value)
		assert.NotEqual(t, c.Component(in).Outputs[0].ID, c.Component(dup[0]).Outputs[0].ID)
	})
	_, err = s.Duplicate(logicsim.Point{}, "nope")
	assert.ErrorIs(t, err, logicsim.ErrUnknownComponent)

	assert.Equal(t, 2, s.Remove(not, in))
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Len(t, c.Components(), 4)
		assert.Empty(t, c.Connections())
	})
	require.NoError(t, s.Move(out, logicsim.Point{X: 5}))
	assert.ErrorIs(t, s.Move(not, logicsim.Point{}), logicsim.ErrUnknownComponent)
}

func TestSession_clock(t *testing.T) {
	s := newSession(t, store.NewMemory())
	_, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindClock})
	assert.ErrorIs(t, err, logicsim.ErrInvalidPeriod)

	clk, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindClock, Period: time.Millisecond})
	require.NoError(t, err)
	out, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindOutput})
	require.NoError(t, err)
	_, err = s.Connect(outNode(s, clk, 0), inNode(s, out, 0))
	require.NoError(t, err)

	seen := map[logicsim.Level]bool{}
	require.Eventually(t, func() bool {
		seen[level(s, out)] = true
		return seen[logicsim.Low] && seen[logicsim.High]
	}, 5*time.Second, 100*time.Microsecond)

	s.Remove(clk)
	assert.Equal(t, logicsim.Low, level(s, out))
	assert.ErrorIs(t, s.Tick(clk), logicsim.ErrUnknownComponent)
}

func defineNot(t *testing.T, s *session.Session) {
	t.Helper()
	ctx := context.Background()
	in, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindInput})
	not, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindGate, Gate: logicsim.NOT, Pos: logicsim.Point{X: 100}})
	out, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindOutput, Pos: logicsim.Point{X: 200}})
	_, err := s.Connect(outNode(s, in, 0), inNode(s, not, 0))
	require.NoError(t, err)
	_, err = s.Connect(outNode(s, not, 0), inNode(s, out, 0))
	require.NoError(t, err)
	_, err = s.Define(ctx, "Inverter", in, not, out)
	require.NoError(t, err)
}

func TestSession_definitions(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := newSession(t, st)
	defineNot(t, s)
	names, err := s.InstallLibrary(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "FullAdder")

	// a new session on the same set sees the definitions
	s2 := newSession(t, st)
	id, err := s2.Instantiate("Inverter", logicsim.Point{})
	require.NoError(t, err)
	_, err = s2.Instantiate("HalfAdder", logicsim.Point{Y: 100})
	require.NoError(t, err)

	n, err := s2.RemoveDefinition(ctx, "Inverter")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	s2.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Nil(t, c.Component(id))
	})
	_, err = s2.RemoveDefinition(ctx, "Inverter")
	assert.ErrorIs(t, err, logicsim.ErrUnknownDefinition)

	defs, err := st.Load(ctx, "test")
	require.NoError(t, err)
	for _, d := range defs {
		assert.NotEqual(t, "Inverter", d.Name)
	}

	// reset clears the saved set
	require.NoError(t, s2.Reset(ctx))
	defs, err = st.Load(ctx, "test")
	require.NoError(t, err)
	assert.Nil(t, defs)
	s2.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Empty(t, c.Components())
		assert.Empty(t, c.Definitions())
	})
}

func TestSession_corrupt(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	st.Put("test", []byte(`[{"name": "broken"}]`))

	var b bytes.Buffer
	s, err := session.New(ctx, st, "test", slog.New(slog.NewTextHandler(&b, nil)))
	require.NoError(t, err)
	defer s.Close()
	assert.Contains(t, b.String(), "discarding corrupted composite definitions")
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Empty(t, c.Definitions())
	})

	defs, err := st.Load(ctx, "test")
	require.NoError(t, err)
	assert.NotNil(t, defs)
	assert.Empty(t, defs)
}

func defNames(c *logicsim.Circuit) []string {
	var names []string
	for _, d := range c.Definitions() {
		names = append(names, d.Name)
	}
	return names
}

func TestSession_defineRepeated(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := newSession(t, st)
	_, err := s.InstallLibrary(ctx)
	require.NoError(t, err)

	in, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindInput})
	not, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindGate, Gate: logicsim.NOT, Pos: logicsim.Point{X: 100}})
	_, err = s.Connect(outNode(s, in, 0), inNode(s, not, 0))
	require.NoError(t, err)
	_, err = s.Define(ctx, "Inv", in, not, not)
	assert.ErrorIs(t, err, logicsim.ErrInvalidSelection)

	// the saved set still loads as a whole
	s2 := newSession(t, st)
	s2.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Len(t, c.Definitions(), len(logiclib.All()))
		assert.Nil(t, c.Definition("Inv"))
	})
}

func TestSession_importAtomic(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := newSession(t, st)
	require.NoError(t, s.ImportDefinitions(ctx, logiclib.Mux()))

	err := s.ImportDefinitions(ctx, logiclib.Xnor(), logiclib.Mux())
	assert.ErrorIs(t, err, logicsim.ErrDuplicateDefinition)
	err = s.ImportDefinitions(ctx, logiclib.Xnor(), logiclib.Xnor())
	assert.ErrorIs(t, err, logicsim.ErrCorruptDefinitions)
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Equal(t, []string{"MUX"}, defNames(c))
	})
	defs, err := st.Load(ctx, "test")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "MUX", defs[0].Name)
}

// failStore fails to save when fail is set.
type failStore struct {
	*store.Memory
	fail bool
}

func (f *failStore) Save(ctx context.Context, set string, defs []*logicsim.Definition) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Save(ctx, set, defs)
}

func TestSession_saveFailure(t *testing.T) {
	ctx := context.Background()
	st := &failStore{Memory: store.NewMemory()}
	s := newSession(t, st)
	defineNot(t, s)
	st.fail = true

	in, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindInput})
	out, _ := s.AddComponent(logicsim.Spec{Kind: logicsim.KindOutput, Pos: logicsim.Point{X: 100}})
	_, err := s.Connect(outNode(s, in, 0), inNode(s, out, 0))
	require.NoError(t, err)
	d, err := s.Define(ctx, "Wire", in, out)
	assert.Error(t, err)
	assert.Nil(t, d)

	assert.Error(t, s.ImportDefinitions(ctx, logiclib.Xnor()))
	_, err = s.InstallLibrary(ctx)
	assert.Error(t, err)
	_, err = s.RemoveDefinition(ctx, "Inverter")
	assert.Error(t, err)

	// memory matches the store
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.Equal(t, []string{"Inverter"}, defNames(c))
	})
	defs, err := st.Load(ctx, "test")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Inverter", defs[0].Name)
}

func TestSession_resetIDs(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, store.NewMemory())
	clk, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindClock, Period: time.Hour})
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	clk2, err := s.AddComponent(logicsim.Spec{Kind: logicsim.KindClock, Period: time.Hour})
	require.NoError(t, err)
	assert.NotEqual(t, clk, clk2)
	// a late tick for the old clock must not flip the new one
	assert.ErrorIs(t, s.Tick(clk), logicsim.ErrUnknownComponent)
	s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		assert.False(t, c.Component(clk2).Value)
	})
}
