package course

// Hook is the company scenario that frames a stage or day.
type Hook struct {
	Company  string `yaml:"company" json:"company"`
	Industry string `yaml:"industry" json:"industry"`
	Text     string `yaml:"hook" json:"hook"`
}

// Stage groups the sessions of one lifecycle phase.
type Stage struct {
	Number   int       `yaml:"stage_number" json:"stage_number"`
	Title    string    `yaml:"title" json:"title"`
	Subtitle string    `yaml:"subtitle" json:"subtitle"`
	Hook     Hook      `yaml:"scenario" json:"scenario"`
	Sessions []Session `yaml:"sessions" json:"sessions"`
}

// Day is a sequence of session-shaped clusters played back to back.
type Day struct {
	Number   int       `yaml:"day_number" json:"day_number"`
	Title    string    `yaml:"title" json:"title"`
	Subtitle string    `yaml:"subtitle" json:"subtitle"`
	Hook     Hook      `yaml:"scenario" json:"scenario"`
	TotalXP  int       `yaml:"total_xp" json:"total_xp"`
	Clusters []Session `yaml:"clusters" json:"clusters"`
}

// Curriculum is everything the content loader supplies.
type Curriculum struct {
	Stages []Stage `yaml:"stages" json:"stages"`
	Days   []Day   `yaml:"days" json:"days"`
}

// FindSession returns the stage session with the given id.
func (c *Curriculum) FindSession(id string) (*Session, *Stage) {
	for si := range c.Stages {
		st := &c.Stages[si]
		for i := range st.Sessions {
			if st.Sessions[i].ID == id {
				return &st.Sessions[i], st
			}
		}
	}
	return nil, nil
}

// NextSession returns the session after id within the same stage, or the first of the next stage.
func (c *Curriculum) NextSession(id string) *Session {
	found := false
	for si := range c.Stages {
		for i := range c.Stages[si].Sessions {
			if found {
				return &c.Stages[si].Sessions[i]
			}
			if c.Stages[si].Sessions[i].ID == id {
				found = true
			}
		}
	}
	return nil
}

// FindDay returns the day with number n.
func (c *Curriculum) FindDay(n int) *Day {
	for i := range c.Days {
		if c.Days[i].Number == n {
			return &c.Days[i]
		}
	}
	return nil
}

// Merge appends the stages and days of other.
func (c *Curriculum) Merge(other *Curriculum) {
	if other == nil {
		return
	}
	c.Stages = append(c.Stages, other.Stages...)
	c.Days = append(c.Days, other.Days...)
}
