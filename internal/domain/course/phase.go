package course

// Phase is one stage of the fixed learning sequence.
type Phase int

const (
	PhaseWidget Phase = iota
	PhaseConcept
	PhaseTree
	PhaseQuiz
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseWidget:
		return "widget"
	case PhaseConcept:
		return "concept"
	case PhaseTree:
		return "tree"
	case PhaseQuiz:
		return "quiz"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Label is the short tag and title shown above a phase.
type Label struct {
	Tag   string
	Title string
}

// LabelFor returns the heading for phase p of session s.
func LabelFor(p Phase, s *Session) Label {
	switch p {
	case PhaseWidget:
		return Label{Tag: "01", Title: s.Widget.Title}
	case PhaseConcept:
		return Label{Tag: "02", Title: "Concept"}
	case PhaseTree:
		return Label{Tag: "03", Title: "Scenario"}
	case PhaseQuiz:
		return Label{Tag: "04", Title: "Apply it"}
	case PhaseDone:
		return Label{Tag: "✓", Title: "Complete"}
	}
	return Label{Tag: "?", Title: p.String()}
}

// Character is a narrating voice.
type Character string

const (
	CharacterNarrator Character = "narrator"
	CharacterPriya    Character = "priya"
	CharacterLearner  Character = "learner"
)

// Line is a narrated piece of text.
type Line struct {
	Text      string    `yaml:"text" json:"text"`
	Character Character `yaml:"character" json:"character"`
}

// VoiceScript holds an optional narration line per phase.
type VoiceScript struct {
	Widget  *Line `yaml:"widget,omitempty" json:"widget,omitempty"`
	Concept *Line `yaml:"concept,omitempty" json:"concept,omitempty"`
	Tree    *Line `yaml:"tree,omitempty" json:"tree,omitempty"`
	Quiz    *Line `yaml:"quiz,omitempty" json:"quiz,omitempty"`
	Done    *Line `yaml:"done,omitempty" json:"done,omitempty"`
}

// For returns the line narrated on entry to p, or nil.
func (v *VoiceScript) For(p Phase) *Line {
	if v == nil {
		return nil
	}
	var l *Line
	switch p {
	case PhaseWidget:
		l = v.Widget
	case PhaseConcept:
		l = v.Concept
	case PhaseTree:
		l = v.Tree
	case PhaseQuiz:
		l = v.Quiz
	case PhaseDone:
		l = v.Done
	}
	if l == nil || l.Text == "" {
		return nil
	}
	return l
}
