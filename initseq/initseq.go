// Package initseq runs initialisation steps once each, in dependency order.
// It replaces ad-hoc "init once" globals: a step states what must have run
// before it and the sequence works out an order that honours every edge.
package initseq

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrDuplicate = errors.New("step already registered")
	ErrUnknown   = errors.New("unknown step")
	ErrCycle     = errors.New("steps depend on each other")
)

type stepNode struct {
	id    int64
	name  string
	after []string
	run   func() error
	done  bool
}

func (n *stepNode) ID() int64 {
	return n.id
}

// Sequence is not safe for concurrent use; it runs before anything that
// could interleave with it is enabled.
type Sequence struct {
	steps map[string]*stepNode
	next  int64
}

func New() *Sequence {
	return &Sequence{steps: map[string]*stepNode{}}
}

// Add registers a step that runs after every step named in after.
func (s *Sequence) Add(name string, run func() error, after ...string) error {
	if _, ok := s.steps[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	if slices.Contains(after, name) {
		return fmt.Errorf("%w: %s", ErrCycle, name)
	}
	s.steps[name] = &stepNode{id: s.next, name: name, after: after, run: run}
	s.next++
	return nil
}

// Order returns the step names in the order Run executes them. Steps with
// no ordering constraint between them keep their registration order.
func (s *Sequence) Order() ([]string, error) {
	g := multi.NewDirectedGraph()
	for _, n := range s.steps {
		if g.Node(n.id) == nil {
			g.AddNode(n)
		}
		for _, dep := range n.after {
			d, ok := s.steps[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrUnknown, n.name, dep)
			}
			g.SetLine(g.NewLine(d, n))
		}
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int {
			return int(a.ID() - b.ID())
		})
	})
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return nil, fmt.Errorf("%w: %s", ErrCycle, describe(cycles))
		}
		return nil, err
	}

	names := make([]string, len(sorted))
	for i, n := range sorted {
		names[i] = n.(*stepNode).name
	}
	return names, nil
}

func describe(cycles topo.Unorderable) string {
	var parts []string
	for _, set := range cycles {
		var names []string
		for _, n := range set {
			names = append(names, n.(*stepNode).name)
		}
		slices.Sort(names)
		parts = append(parts, strings.Join(names, ", "))
	}
	return strings.Join(parts, "; ")
}

// Run executes every step that has not completed yet. A failing step stops
// the sequence; steps after it stay pending and a later Run retries them.
func (s *Sequence) Run() error {
	order, err := s.Order()
	if err != nil {
		return err
	}
	for _, name := range order {
		n := s.steps[name]
		if n.done {
			continue
		}
		if n.run != nil {
			if err := n.run(); err != nil {
				return fmt.Errorf("init %s: %w", name, err)
			}
		}
		n.done = true
	}
	return nil
}

// Done reports whether the named step has completed.
func (s *Sequence) Done(name string) bool {
	n, ok := s.steps[name]
	return ok && n.done
}
