package course

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalid is matched by every content-integrity failure.
var ErrInvalid = errors.New("invalid content")

// ValidationError lists every integrity problem found in a piece of content.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d content problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

// Validate checks the curriculum: every session, every day and id uniqueness.
func (c *Curriculum) Validate() error {
	var p problems
	seen := make(map[string]string)
	check := func(where string, s *Session) {
		if prev, ok := seen[s.ID]; ok && s.ID != "" {
			p.addf("%s: session id %q already used in %s", where, s.ID, prev)
		}
		seen[s.ID] = where
		s.collect(where, &p)
	}
	for _, st := range c.Stages {
		for i := range st.Sessions {
			check(fmt.Sprintf("stage %d", st.Number), &st.Sessions[i])
		}
	}
	for _, d := range c.Days {
		where := fmt.Sprintf("day %d", d.Number)
		if len(d.Clusters) == 0 {
			p.addf("%s: no clusters", where)
		}
		if d.TotalXP <= 0 {
			p.addf("%s: total_xp must be positive", where)
		}
		for i := range d.Clusters {
			check(where, &d.Clusters[i])
		}
	}
	return p.err()
}

// Validate checks a single session.
func (s *Session) Validate() error {
	var p problems
	s.collect("session", &p)
	return p.err()
}

func (s *Session) collect(where string, p *problems) {
	where = fmt.Sprintf("%s session %q", where, s.ID)
	if s.ID == "" {
		p.addf("%s: missing id", where)
	}
	if s.Title == "" {
		p.addf("%s: missing title", where)
	}
	if s.TotalXP < 0 {
		p.addf("%s: negative total_xp", where)
	}
	if s.Scenario != nil {
		s.Scenario.collect(where+" decision_tree", p)
	}
	collectQuiz(where+" quiz", s.Quiz, p)
}

// Validate checks the scenario graph: references resolve, outcome ids are prefixed,
// no cycle is reachable and every reachable node leads to an outcome.
func (sc *Scenario) Validate() error {
	var p problems
	sc.collect("decision_tree", &p)
	return p.err()
}

func (sc *Scenario) collect(where string, p *problems) {
	if _, ok := sc.Nodes[sc.StartID]; !ok {
		p.addf("%s: start id %q is not a node", where, sc.StartID)
	}
	for _, id := range sortedKeys(sc.Outcomes) {
		if !IsOutcomeID(id) {
			p.addf("%s: outcome %q lacks the %q prefix", where, id, OutcomePrefix)
		}
		if sc.Outcomes[id].XP < 0 {
			p.addf("%s: outcome %q has negative xp", where, id)
		}
	}
	for _, id := range sortedKeys(sc.Nodes) {
		n := sc.Nodes[id]
		if IsOutcomeID(id) {
			p.addf("%s: node %q uses the outcome prefix", where, id)
		}
		if n.ID != "" && n.ID != id {
			p.addf("%s: node key %q does not match id %q", where, id, n.ID)
		}
		if len(n.Options) == 0 {
			p.addf("%s: node %q has no options", where, id)
		}
		for i, o := range n.Options {
			if IsOutcomeID(o.NextID) {
				if _, ok := sc.Outcomes[o.NextID]; !ok {
					p.addf("%s: node %q option %d points to unknown outcome %q", where, id, i, o.NextID)
				}
				continue
			}
			if _, ok := sc.Nodes[o.NextID]; !ok {
				p.addf("%s: node %q option %d points to unknown node %q", where, id, i, o.NextID)
			}
		}
	}
	if cycle := sc.findCycle(); cycle != nil {
		p.addf("%s: cycle %s", where, strings.Join(cycle, " -> "))
	}
}

// findCycle walks from the start node and returns the first cycle found.
func (sc *Scenario) findCycle() []string {
	const (
		unvisited = iota
		active
		finished
	)
	state := make(map[string]int)
	var stack []string
	var walk func(id string) []string
	walk = func(id string) []string {
		state[id] = active
		stack = append(stack, id)
		for _, o := range sc.Nodes[id].Options {
			if IsOutcomeID(o.NextID) {
				continue
			}
			if _, ok := sc.Nodes[o.NextID]; !ok {
				continue
			}
			switch state[o.NextID] {
			case active:
				for i, s := range stack {
					if s == o.NextID {
						return append(append([]string{}, stack[i:]...), o.NextID)
					}
				}
			case unvisited:
				if c := walk(o.NextID); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = finished
		return nil
	}
	if _, ok := sc.Nodes[sc.StartID]; !ok {
		return nil
	}
	return walk(sc.StartID)
}

// ValidateQuiz checks that each question has exactly one correct option and the XP sum is positive.
func ValidateQuiz(questions []QuizQuestion) error {
	var p problems
	collectQuiz("quiz", questions, &p)
	return p.err()
}

func collectQuiz(where string, questions []QuizQuestion, p *problems) {
	if len(questions) == 0 {
		p.addf("%s: no questions", where)
		return
	}
	for i, q := range questions {
		correct := 0
		for _, o := range q.Options {
			if o.Correct {
				correct++
			}
		}
		if correct != 1 {
			p.addf("%s: question %d has %d correct options, want exactly 1", where, i, correct)
		}
		if q.XP < 0 {
			p.addf("%s: question %d has negative xp", where, i)
		}
	}
	if MaxXP(questions) <= 0 {
		p.addf("%s: xp sum must be positive", where)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
