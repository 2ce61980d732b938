// Package pipeline builds the signal processing graph of an effect
// preset. A Pipeline is an immutable DAG of nodes stored in topological
// order; it is executed by the render package.
package pipeline

import (
	"fmt"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
)

// Step is a node together with its position in the graph. Inputs
// reference audio producing steps which precede this step.
type Step struct {
	ID     NodeID
	Inputs []NodeID
	Node   Node
}

// Pipeline is the work order for one offline render. Source is the buffer
// fed into the Source node; for effects with a direct sample transform it
// already contains the transformed samples. An empty pipeline (no steps)
// passes Source through unmodified.
type Pipeline struct {
	Effect   effects.ID
	Source   *audio.Buffer
	Steps    []Step
	Output   NodeID
	Warnings []error
}

// Identity reports whether the pipeline passes its source through.
func (p *Pipeline) Identity() bool {
	return len(p.Steps) == 0
}

// Step returns the step with the given id.
func (p *Pipeline) Step(id NodeID) (Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Validate checks that the steps form a DAG in topological order with
// a single Source node.
func (p *Pipeline) Validate() error {
	if p.Source == nil {
		return fmt.Errorf("pipeline without source buffer: %w", audio.ErrRenderFailure)
	}
	if p.Identity() {
		return nil
	}

	seen := map[NodeID]Node{}
	sources := 0
	for _, s := range p.Steps {
		if s.ID == 0 {
			return fmt.Errorf("step with zero id: %w", audio.ErrRenderFailure)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate node %d: %w", s.ID, audio.ErrRenderFailure)
		}
		for _, in := range s.Inputs {
			if _, ok := seen[in]; !ok {
				return fmt.Errorf("node %d (%s) references unknown or later node %d: %w",
					s.ID, s.Node.Kind(), in, audio.ErrRenderFailure)
			}
		}
		switch n := s.Node.(type) {
		case Source:
			sources++
		case DelayLine:
			if n.Modulation != 0 {
				if _, ok := seen[n.Modulation].(Oscillator); !ok {
					return fmt.Errorf("delay %d modulated by non oscillator node %d: %w",
						s.ID, n.Modulation, audio.ErrRenderFailure)
				}
			}
		case Mixer:
			if len(n.Weights) != len(s.Inputs) {
				return fmt.Errorf("mixer %d has %d inputs but %d weights: %w",
					s.ID, len(s.Inputs), len(n.Weights), audio.ErrRenderFailure)
			}
		}
		seen[s.ID] = s.Node
	}

	if sources != 1 {
		return fmt.Errorf("pipeline has %d source nodes: %w", sources, audio.ErrRenderFailure)
	}
	if _, ok := seen[p.Output]; !ok {
		return fmt.Errorf("unknown output node %d: %w", p.Output, audio.ErrRenderFailure)
	}
	return nil
}

// graph is a small helper to assemble the steps of a pipeline.
type graph struct {
	steps []Step
}

func (g *graph) add(n Node, inputs ...NodeID) NodeID {
	id := NodeID(len(g.steps) + 1)
	g.steps = append(g.steps, Step{ID: id, Inputs: inputs, Node: n})
	return id
}
