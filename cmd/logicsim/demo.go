// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/db47h/logicsim"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a XOR gate from NOT, AND and OR gates and print its truth table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return demo(cmd.OutOrStdout())
	},
}

// demo builds out = (a AND NOT b) OR (b AND NOT a), packages it as a
// composite and prints the truth table of an instance.
func demo(w io.Writer) error {
	c := logicsim.New()
	a := c.AddInput(logicsim.Point{X: 0, Y: 0}, false)
	b := c.AddInput(logicsim.Point{X: 0, Y: 100}, false)
	var parts [7]*logicsim.Component
	for i, t := range []logicsim.GateType{logicsim.OR, logicsim.OR, logicsim.NOT, logicsim.NOT, logicsim.AND, logicsim.AND, logicsim.OR} {
		g, err := c.AddGate(t, logicsim.Point{X: 100 + float64(i/2)*100, Y: float64(i%2) * 100})
		if err != nil {
			return err
		}
		parts[i] = g
	}
	bufA, bufB, notA, notB, and1, and2, or := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]
	out := c.AddOutput(logicsim.Point{X: 500, Y: 50})

	wires := [][2]logicsim.NodeID{
		{a.Outputs[0].ID, bufA.Inputs[0].ID},
		{b.Outputs[0].ID, bufB.Inputs[0].ID},
		{bufA.Outputs[0].ID, notA.Inputs[0].ID},
		{bufB.Outputs[0].ID, notB.Inputs[0].ID},
		{bufA.Outputs[0].ID, and1.Inputs[0].ID},
		{notB.Outputs[0].ID, and1.Inputs[1].ID},
		{bufB.Outputs[0].ID, and2.Inputs[0].ID},
		{notA.Outputs[0].ID, and2.Inputs[1].ID},
		{and1.Outputs[0].ID, or.Inputs[0].ID},
		{and2.Outputs[0].ID, or.Inputs[1].ID},
		{or.Outputs[0].ID, out.Inputs[0].ID},
	}
	for _, wr := range wires {
		if _, err := c.AddConnection(wr[0], wr[1]); err != nil {
			return err
		}
	}
	ids := []logicsim.ComponentID{a.ID, b.ID, out.ID}
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	if _, err := c.DefineComposite("XOR2", ids...); err != nil {
		return err
	}
	c.RemoveComponents(ids...)

	// drive an instance
	x := c.AddInput(logicsim.Point{X: 0, Y: 300}, false)
	y := c.AddInput(logicsim.Point{X: 0, Y: 400}, false)
	xor, err := c.Instantiate("XOR2", logicsim.Point{X: 100, Y: 350})
	if err != nil {
		return err
	}
	o := c.AddOutput(logicsim.Point{X: 200, Y: 350})
	for _, wr := range [][2]logicsim.NodeID{
		{x.Outputs[0].ID, xor.Inputs[0].ID},
		{y.Outputs[0].ID, xor.Inputs[1].ID},
		{xor.Outputs[0].ID, o.Inputs[0].ID},
	} {
		if _, err = c.AddConnection(wr[0], wr[1]); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "a b | out")
	for i := 0; i < 4; i++ {
		x.Value, y.Value = i&2 != 0, i&1 != 0
		c.Simulate()
		fmt.Fprintf(w, "%d %d | %s\n", i>>1, i&1, o.Level)
	}
	return nil
}
