package course

import "strings"

// OutcomePrefix marks scenario ids that are terminal outcomes rather than nodes.
const OutcomePrefix = "end-"

// IsOutcomeID reports whether id names a scenario outcome.
func IsOutcomeID(id string) bool {
	return strings.HasPrefix(id, OutcomePrefix)
}

// Session is a single learning session: widget, concept, optional scenario and a quiz.
// Sessions are loaded once and never mutated by the player.
type Session struct {
	ID       string         `yaml:"id" json:"id"`
	Title    string         `yaml:"title" json:"title"`
	TotalXP  int            `yaml:"total_xp" json:"total_xp"`
	Widget   Widget         `yaml:"widget" json:"widget"`
	Concept  ConceptCard    `yaml:"concept" json:"concept"`
	Scenario *Scenario      `yaml:"decision_tree,omitempty" json:"decision_tree,omitempty"`
	Quiz     []QuizQuestion `yaml:"quiz" json:"quiz"`
	Voice    *VoiceScript   `yaml:"voice_script,omitempty" json:"voice_script,omitempty"`
}

// HasScenario reports whether the session defines a branching scenario.
func (s *Session) HasScenario() bool {
	return s.Scenario != nil
}

// WidgetType names the opening interactive exercise.
type WidgetType string

const (
	WidgetBriefClassifier  WidgetType = "brief-classifier"
	WidgetInterviewDecoder WidgetType = "interview-decoder"
	WidgetThresholdSlider  WidgetType = "threshold-slider"
	WidgetDragRank         WidgetType = "drag-rank"
)

// Widget describes the interactive exercise. Config is interpreted by the renderer only.
type Widget struct {
	Type     WidgetType     `yaml:"type" json:"type"`
	Title    string         `yaml:"title" json:"title"`
	Subtitle string         `yaml:"subtitle" json:"subtitle"`
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// ConceptCard is the explanation shown after the widget.
type ConceptCard struct {
	ID          string `yaml:"id" json:"id"`
	Term        string `yaml:"term" json:"term"`
	Tagline     string `yaml:"tagline" json:"tagline"`
	Definition  string `yaml:"definition" json:"definition"`
	MentalModel string `yaml:"mental_model" json:"mental_model"`
	Takeaway    string `yaml:"takeaway" json:"takeaway"`
	Category    string `yaml:"category" json:"category"`
}

// Scenario is a directed graph of decision nodes ending in graded outcomes.
type Scenario struct {
	StartID  string             `yaml:"start_id" json:"start_id"`
	Nodes    map[string]Node    `yaml:"nodes" json:"nodes"`
	Outcomes map[string]Outcome `yaml:"outcomes" json:"outcomes"`
}

// Node is a single decision point.
type Node struct {
	ID      string   `yaml:"id" json:"id"`
	Prompt  string   `yaml:"question" json:"question"`
	Hint    string   `yaml:"hint,omitempty" json:"hint,omitempty"`
	Options []Choice `yaml:"options" json:"options"`
}

// Choice is one option of a node.
type Choice struct {
	Label       string `yaml:"label" json:"label"`
	NextID      string `yaml:"next_id" json:"next_id"`
	Consequence string `yaml:"consequence,omitempty" json:"consequence,omitempty"`
}

// Severity grades an outcome. It is descriptive only and never scales XP.
type Severity string

const (
	SeverityGood Severity = "good"
	SeverityOK   Severity = "ok"
	SeverityBad  Severity = "bad"
)

// Outcome is a terminal result of a scenario.
type Outcome struct {
	Severity    Severity `yaml:"type" json:"type"`
	Title       string   `yaml:"title" json:"title"`
	Explanation string   `yaml:"explanation" json:"explanation"`
	XP          int      `yaml:"xp" json:"xp"`
}

// QuizQuestion is a multiple-choice question with exactly one correct answer.
type QuizQuestion struct {
	ID       string   `yaml:"id" json:"id"`
	Scenario string   `yaml:"scenario" json:"scenario"`
	Prompt   string   `yaml:"question" json:"question"`
	Options  []Answer `yaml:"options" json:"options"`
	XP       int      `yaml:"xp" json:"xp"`
}

// CorrectIndex returns the index of the correct option, or -1.
func (q QuizQuestion) CorrectIndex() int {
	for i, o := range q.Options {
		if o.Correct {
			return i
		}
	}
	return -1
}

// Answer is one option of a quiz question.
type Answer struct {
	Label       string `yaml:"label" json:"label"`
	Correct     bool   `yaml:"correct" json:"correct"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

// MaxXP sums the XP of all questions.
func MaxXP(questions []QuizQuestion) int {
	total := 0
	for _, q := range questions {
		total += q.XP
	}
	return total
}
