// Package scenario walks a branching decision graph to a graded outcome.
//
// The graph is assumed to be validated at load time (see course.Scenario.Validate);
// cycles are a content-integrity invariant and are not detected here.
package scenario

import (
	"errors"
	"fmt"

	"pmsim/internal/domain/course"
)

var (
	ErrNoScenario  = errors.New("scenario: session has no decision tree")
	ErrFinished    = errors.New("scenario: already finished")
	ErrNotCurrent  = errors.New("scenario: node is not the current node")
	ErrOptionRange = errors.New("scenario: option index out of range")
)

// Step is the result of a selection: either the next node or a terminal outcome.
type Step struct {
	NodeID      string
	Choice      course.Choice
	NextNodeID  string
	OutcomeID   string
	Outcome     *course.Outcome
	Consequence string
}

// Terminal reports whether the step ended the scenario.
func (s Step) Terminal() bool {
	return s.OutcomeID != ""
}

// Visit is one answered node, kept for rendering the trail of past choices.
type Visit struct {
	NodeID      string
	Prompt      string
	Chosen      string
	Consequence string
}

// Evaluator tracks a single walk through a scenario.
type Evaluator struct {
	tree         *course.Scenario
	path         []string
	chosen       map[string]string
	consequences map[string]string
	outcomeID    string
}

// New starts a walk at the scenario's start node.
func New(tree *course.Scenario) (*Evaluator, error) {
	if tree == nil {
		return nil, ErrNoScenario
	}
	return &Evaluator{
		tree:         tree,
		path:         []string{tree.StartID},
		chosen:       make(map[string]string),
		consequences: make(map[string]string),
	}, nil
}

// Current returns the id of the node awaiting a selection.
func (e *Evaluator) Current() string {
	return e.path[len(e.path)-1]
}

// CurrentNode returns the node awaiting a selection. ok is false once finished.
func (e *Evaluator) CurrentNode() (course.Node, bool) {
	if e.Finished() {
		return course.Node{}, false
	}
	n, ok := e.tree.Nodes[e.Current()]
	return n, ok
}

// Select picks option for nodeID, which must be the current node.
func (e *Evaluator) Select(nodeID string, option int) (Step, error) {
	if e.Finished() {
		return Step{}, ErrFinished
	}
	if nodeID != e.Current() {
		return Step{}, fmt.Errorf("%w: got %q, current %q", ErrNotCurrent, nodeID, e.Current())
	}
	node := e.tree.Nodes[nodeID]
	if option < 0 || option >= len(node.Options) {
		return Step{}, fmt.Errorf("%w: %d of %d at %q", ErrOptionRange, option, len(node.Options), nodeID)
	}

	choice := node.Options[option]
	e.chosen[nodeID] = choice.Label
	if choice.Consequence != "" {
		e.consequences[nodeID] = choice.Consequence
	}
	e.path = append(e.path, choice.NextID)

	step := Step{NodeID: nodeID, Choice: choice, Consequence: choice.Consequence}
	if out, ok := e.tree.Outcomes[choice.NextID]; ok {
		e.outcomeID = choice.NextID
		step.OutcomeID = choice.NextID
		step.Outcome = &out
		return step, nil
	}
	step.NextNodeID = choice.NextID
	return step, nil
}

// Finished reports whether an outcome was reached.
func (e *Evaluator) Finished() bool {
	return e.outcomeID != ""
}

// Outcome returns the terminal outcome once finished.
func (e *Evaluator) Outcome() (string, course.Outcome, bool) {
	if !e.Finished() {
		return "", course.Outcome{}, false
	}
	return e.outcomeID, e.tree.Outcomes[e.outcomeID], true
}

// XP is the outcome's fixed XP, or 0 while unfinished.
func (e *Evaluator) XP() int {
	_, out, ok := e.Outcome()
	if !ok {
		return 0
	}
	return out.XP
}

// Path returns visited ids in order, ending with the outcome id once finished.
func (e *Evaluator) Path() []string {
	return append([]string(nil), e.path...)
}

// Visited reports whether nodeID was already answered on this walk.
func (e *Evaluator) Visited(nodeID string) bool {
	_, ok := e.chosen[nodeID]
	return ok
}

// History returns the answered nodes with the chosen label and consequence.
func (e *Evaluator) History() []Visit {
	var out []Visit
	for _, id := range e.path {
		label, ok := e.chosen[id]
		if !ok {
			continue
		}
		out = append(out, Visit{
			NodeID:      id,
			Prompt:      e.tree.Nodes[id].Prompt,
			Chosen:      label,
			Consequence: e.consequences[id],
		})
	}
	return out
}
