// Package shell is the terminal front end: it renders each phase, forwards
// learner input to the player and types narration out in step with the voice.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"

	"pmsim/internal/cli/scheme/colours"
	"pmsim/internal/domain/course"
	"pmsim/internal/lesson/player"
	"pmsim/internal/lesson/progress"
	"pmsim/internal/lesson/reveal"
	"pmsim/internal/lesson/voice"
)

const (
	DefaultPollInterval = 40 * time.Millisecond
	// startGrace is how long past the narration delay the shell waits for a line to begin.
	startGrace = 2 * time.Second
	// lineLimit caps how long a single line may hold the prompt.
	lineLimit = 45 * time.Second
)

var errQuit = errors.New("shell: learner left")

type Shell struct {
	in       *bufio.Reader
	out      io.Writer
	content  *course.Curriculum
	tracker  *progress.Tracker
	provider voice.Provider
	clock    clock.Clock
	delay    time.Duration
	speed    time.Duration
	floor    time.Duration
	pace     time.Duration
	poll     time.Duration
	log      *logrus.Entry

	rev *reveal.Revealer
	nar *narration
}

type Option func(*Shell)

func WithClock(c clock.Clock) Option {
	return func(s *Shell) { s.clock = c }
}

func WithNarrationDelay(d time.Duration) Option {
	return func(s *Shell) { s.delay = d }
}

// WithReveal sets the autonomous reveal speed, the pace floor and the pace
// used while muted.
func WithReveal(speed, floor, fallback time.Duration) Option {
	return func(s *Shell) {
		if speed > 0 {
			s.speed = speed
		}
		if floor > 0 {
			s.floor = floor
		}
		if fallback > 0 {
			s.pace = fallback
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Shell) { s.poll = d }
}

// New builds a shell reading learner input from in. A paced provider drives
// the text reveal; otherwise text reveals at a fixed speed.
func New(in io.Reader, out io.Writer, content *course.Curriculum, tracker *progress.Tracker, provider voice.Provider, opts ...Option) *Shell {
	s := &Shell{
		in:       bufio.NewReader(in),
		out:      out,
		content:  content,
		tracker:  tracker,
		provider: provider,
		clock:    clock.New(),
		delay:    player.DefaultNarrationDelay,
		speed:    reveal.DefaultSpeed,
		floor:    voice.MinPace,
		pace:     voice.DefaultPace,
		poll:     DefaultPollInterval,
		log:      logrus.WithField("component", "shell"),
	}
	for _, o := range opts {
		o(s)
	}

	revOpts := []reveal.Option{
		reveal.WithClock(s.clock),
		reveal.WithSpeed(s.speed),
		reveal.WithFloor(s.floor),
	}
	if provider.Paced() {
		s.rev = reveal.Follow(provider, revOpts...)
	} else {
		s.rev = reveal.New(revOpts...)
	}
	s.nar = newNarration(provider, s.rev, s.pace)
	return s
}

// Close stops narration and detaches the revealer.
func (s *Shell) Close() {
	s.provider.Stop()
	s.rev.Close()
}

func (s *Shell) Welcome() {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "🧭 AI PM Simulator")
	fmt.Fprintln(s.out)
	colours.Info.Fprintln(s.out, "📚 Available commands:")
	fmt.Fprintln(s.out, "  • pmsim list           - Browse stages, sessions and days")
	fmt.Fprintln(s.out, "  • pmsim play [id]      - Play a session")
	fmt.Fprintln(s.out, "  • pmsim day [n]        - Play a day of clusters")
	fmt.Fprintln(s.out, "  • pmsim say <text>     - Narrate a line")
	fmt.Fprintln(s.out, "  • pmsim voices         - Show voice backends")
	fmt.Fprintln(s.out)
	colours.Muted.Fprintln(s.out, "While playing: 'r' replays narration, 'm' toggles mute, 'q' leaves.")
}

// List prints the curriculum with completion marks.
func (s *Shell) List() {
	fmt.Fprintln(s.out)
	for i := range s.content.Stages {
		st := &s.content.Stages[i]
		done, total := s.tracker.StageProgress(st)
		colours.Title.Fprintf(s.out, "Stage %d · %s", st.Number, st.Title)
		colours.Muted.Fprintf(s.out, "  %d/%d\n", done, total)
		if st.Hook.Company != "" {
			colours.Muted.Fprintf(s.out, "  %s · %s\n", st.Hook.Company, st.Hook.Industry)
		}
		for _, sess := range st.Sessions {
			mark := "  "
			if s.tracker.Completed(sess.ID) {
				mark = colours.Success.Sprint("✓ ")
			}
			fmt.Fprintf(s.out, "  %s%-5s %s", mark, sess.ID, sess.Title)
			colours.XP.Fprintf(s.out, "  %d XP\n", sess.TotalXP)
		}
		fmt.Fprintln(s.out)
	}
	for _, d := range s.content.Days {
		mark := ""
		if s.tracker.Completed(player.DayID(d.Number)) {
			mark = colours.Success.Sprint(" ✓")
		}
		colours.Title.Fprintf(s.out, "Day %d · %s", d.Number, d.Title)
		fmt.Fprintf(s.out, "%s  %d clusters", mark, len(d.Clusters))
		colours.XP.Fprintf(s.out, "  %d XP\n", d.TotalXP)
	}
	s.footer()
}

func (s *Shell) footer() {
	colours.XP.Fprintf(s.out, "\n⭐ %d XP", s.tracker.TotalXP())
	colours.Muted.Fprintf(s.out, " · level %d\n", s.tracker.Level())
}

// Say narrates a single line.
func (s *Shell) Say(ctx context.Context, text string, character course.Character) {
	s.nar.Speak(text, character)
	s.typeLine(ctx, &course.Line{Text: text, Character: character})
}

// PlaySession plays session id, then offers the sessions that follow it.
// An empty id starts at the first session not yet completed.
func (s *Shell) PlaySession(ctx context.Context, id string) error {
	sess, err := s.pick(id)
	if err != nil {
		return err
	}
	for sess != nil {
		p := s.newPlayer(sess)
		if err := s.run(ctx, p); err != nil {
			if errors.Is(err, errQuit) {
				colours.Warning.Fprintln(s.out, "👋 See you next session.")
				return nil
			}
			return err
		}
		next := s.content.NextSession(sess.ID)
		if next == nil {
			colours.Success.Fprintln(s.out, "🏁 That was the last session.")
			return nil
		}
		answer, err := s.readLine(fmt.Sprintf("Continue to %s %s? [Y/n] ", next.ID, next.Title))
		if err != nil || strings.HasPrefix(strings.ToLower(answer), "n") || answer == "q" {
			return nil
		}
		sess = next
	}
	return nil
}

func (s *Shell) pick(id string) (*course.Session, error) {
	if id != "" {
		sess, _ := s.content.FindSession(id)
		if sess == nil {
			return nil, fmt.Errorf("session %q not found", id)
		}
		return sess, nil
	}
	for i := range s.content.Stages {
		for j := range s.content.Stages[i].Sessions {
			sess := &s.content.Stages[i].Sessions[j]
			if !s.tracker.Completed(sess.ID) {
				return sess, nil
			}
		}
	}
	return nil, errors.New("no sessions left to play")
}

func (s *Shell) playerOptions() []player.Option {
	return []player.Option{
		player.WithNarrator(s.nar),
		player.WithClock(s.clock),
		player.WithNarrationDelay(s.delay),
	}
}

func (s *Shell) newPlayer(sess *course.Session) *player.Player {
	opts := append(s.playerOptions(), player.WithRecorder(s.tracker))
	return player.New(sess, opts...)
}

// PlayDay plays the clusters of day n in order.
func (s *Shell) PlayDay(ctx context.Context, n int) error {
	d := s.content.FindDay(n)
	if d == nil {
		return fmt.Errorf("day %d not found", n)
	}
	var result *player.DayResult
	day, err := player.NewDay(d, s.tracker,
		player.WithPlayerOptions(s.playerOptions()...),
		player.OnDayComplete(func(r player.DayResult) { result = &r }),
	)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	colours.Title.Fprintf(s.out, "📅 Day %d · %s\n", d.Number, d.Title)
	if d.Subtitle != "" {
		colours.Muted.Fprintln(s.out, d.Subtitle)
	}
	if d.Hook.Text != "" {
		colours.Info.Fprintf(s.out, "\n%s · %s\n", d.Hook.Company, d.Hook.Industry)
		fmt.Fprintln(s.out, d.Hook.Text)
	}

	for !day.Finished() {
		p, i := day.Active()
		colours.Tag.Fprintf(s.out, "\n── Cluster %d/%d ──\n", i+1, len(d.Clusters))
		if err := s.run(ctx, p); err != nil {
			day.Leave()
			if errors.Is(err, errQuit) {
				colours.Warning.Fprintln(s.out, "👋 Your day is saved up to the last finished cluster.")
				return nil
			}
			return err
		}
	}
	if result != nil {
		fmt.Fprintln(s.out)
		colours.Success.Fprintf(s.out, "🏆 Day %d complete: ", result.Day)
		colours.XP.Fprintf(s.out, "%d / %d XP (%d%%)\n", result.XP, d.TotalXP, result.Percentage)
		s.footer()
	}
	return nil
}

// run drives p from its current phase to done.
func (s *Shell) run(ctx context.Context, p *player.Player) error {
	typed := false
	var last course.Phase
	for {
		if err := ctx.Err(); err != nil {
			p.Leave()
			return err
		}
		phase := p.Phase()
		s.header(p)
		// Narration is scheduled on phase entry only.
		if !typed || phase != last {
			s.typeLine(ctx, p.Line())
			typed, last = true, phase
		}

		var err error
		switch phase {
		case course.PhaseWidget:
			err = s.widget(p)
		case course.PhaseConcept:
			err = s.concept(p)
		case course.PhaseTree:
			err = s.tree(p)
		case course.PhaseQuiz:
			err = s.quiz(p)
		case course.PhaseDone:
			s.done(p)
			return nil
		}
		if err != nil {
			if errors.Is(err, errQuit) {
				p.Leave()
			}
			return err
		}
	}
}

func (s *Shell) header(p *player.Player) {
	label := p.Label()
	fmt.Fprintln(s.out)
	colours.Muted.Fprintf(s.out, "%s · ", p.Session().Title)
	colours.XP.Fprintf(s.out, "%d XP", p.XP())
	colours.Muted.Fprintf(s.out, " · level %d\n", s.tracker.Level())
	colours.Tag.Fprintf(s.out, "[%s] ", label.Tag)
	colours.Title.Fprintln(s.out, label.Title)
}

func (s *Shell) widget(p *player.Player) error {
	w := p.Session().Widget
	if w.Subtitle != "" {
		fmt.Fprintln(s.out, w.Subtitle)
	}
	if text, ok := w.Config["context"].(string); ok && text != "" {
		colours.Muted.Fprintln(s.out, strings.TrimSpace(text))
	}
	if _, err := s.ask(p, "Press Enter when you have finished the exercise "); err != nil {
		return err
	}
	p.CompleteWidget()
	return nil
}

func (s *Shell) concept(p *player.Player) error {
	c := p.Session().Concept
	colours.Title.Fprintln(s.out, c.Term)
	if c.Tagline != "" {
		colours.Info.Fprintln(s.out, c.Tagline)
	}
	fmt.Fprintf(s.out, "\n%s\n", strings.TrimSpace(c.Definition))
	if c.MentalModel != "" {
		colours.Prompt.Fprint(s.out, "\n🧠 Mental model\n")
		fmt.Fprintln(s.out, strings.TrimSpace(c.MentalModel))
	}
	if c.Takeaway != "" {
		colours.Prompt.Fprint(s.out, "\n💬 Say this in the room\n")
		fmt.Fprintln(s.out, strings.TrimSpace(c.Takeaway))
	}
	if _, err := s.ask(p, "Press Enter to continue "); err != nil {
		return err
	}
	p.ContinueConcept()
	return nil
}

func (s *Shell) tree(p *player.Player) error {
	ev := p.Scenario()
	for _, v := range ev.History() {
		colours.Success.Fprintf(s.out, "  ✓ %s\n", v.Chosen)
		if v.Consequence != "" {
			colours.Muted.Fprintf(s.out, "    %s\n", v.Consequence)
		}
	}
	node, ok := ev.CurrentNode()
	if !ok {
		return fmt.Errorf("scenario node %q is missing", ev.Current())
	}
	fmt.Fprintf(s.out, "\n%s\n", strings.TrimSpace(node.Prompt))
	if node.Hint != "" {
		colours.Muted.Fprintf(s.out, "💡 %s\n", node.Hint)
	}
	labels := make([]string, len(node.Options))
	for i, o := range node.Options {
		labels[i] = o.Label
	}
	choice, err := s.choose(p, labels)
	if err != nil {
		return err
	}

	step, err := p.SelectOption(node.ID, choice)
	if err != nil {
		colours.Error.Fprintf(s.out, "❌ %v\n", err)
		return nil
	}
	if step.Consequence != "" {
		colours.Info.Fprintf(s.out, "→ %s\n", step.Consequence)
	}
	if step.Terminal() {
		out := step.Outcome
		fmt.Fprintln(s.out)
		colours.Severity(out.Severity).Fprintln(s.out, out.Title)
		fmt.Fprintln(s.out, strings.TrimSpace(out.Explanation))
		colours.XP.Fprintf(s.out, "+%d XP\n", out.XP)
	}
	return nil
}

func (s *Shell) quiz(p *player.Player) error {
	q := p.Quiz()
	question, idx := q.Current()
	colours.Muted.Fprintf(s.out, "Question %d of %d\n", idx+1, q.Len())
	if question.Scenario != "" {
		fmt.Fprintln(s.out, strings.TrimSpace(question.Scenario))
	}
	colours.Prompt.Fprintf(s.out, "\n%s\n", question.Prompt)
	labels := make([]string, len(question.Options))
	for i, o := range question.Options {
		labels[i] = o.Label
	}
	choice, err := s.choose(p, labels)
	if err != nil {
		return err
	}

	fb, ok, err := p.ChooseAnswer(choice)
	if err != nil {
		colours.Error.Fprintf(s.out, "❌ %v\n", err)
		return nil
	}
	if !ok {
		return nil
	}
	if fb.Correct {
		colours.Verdict(true).Fprintln(s.out, "✓ Correct")
	} else {
		colours.Verdict(false).Fprintln(s.out, "✗ Not quite")
	}
	fmt.Fprintln(s.out, strings.TrimSpace(fb.Explanation))
	if !fb.Correct {
		colours.Info.Fprintf(s.out, "Correct answer: %s\n", fb.CorrectLabel)
	}
	colours.XP.Fprintf(s.out, "+%d XP\n", fb.XP)

	prompt := "Press Enter for the next question "
	if idx == q.Len()-1 {
		prompt = "Press Enter to finish "
	}
	if _, err := s.ask(p, prompt); err != nil {
		return err
	}
	_, err = p.NextQuestion()
	return err
}

func (s *Shell) done(p *player.Player) {
	sess := p.Session()
	colours.XP.Fprintf(s.out, "%d / %d XP", p.XP(), sess.TotalXP)
	colours.Muted.Fprintf(s.out, "  score %d%%\n", p.Percentage())
	if sess.Concept.Term != "" {
		colours.Success.Fprintf(s.out, "🔓 Skill unlocked: %s\n", sess.Concept.Term)
	}
	s.footer()
}

// choose lists labels and reads a 1-based pick until it is valid.
func (s *Shell) choose(p *player.Player, labels []string) (int, error) {
	for i, l := range labels {
		colours.Tag.Fprintf(s.out, "  %d. ", i+1)
		fmt.Fprintln(s.out, strings.TrimSpace(l))
	}
	for {
		input, err := s.ask(p, fmt.Sprintf("Choose 1-%d: ", len(labels)))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(input)
		if err == nil && n >= 1 && n <= len(labels) {
			return n - 1, nil
		}
		colours.Error.Fprintf(s.out, "❌ Pick a number between 1 and %d.\n", len(labels))
	}
}

// ask reads an answer, handling the commands available at every prompt.
func (s *Shell) ask(p *player.Player, prompt string) (string, error) {
	for {
		input, err := s.readLine(prompt)
		if err != nil {
			return "", errQuit
		}
		switch strings.ToLower(input) {
		case "q", "quit":
			return "", errQuit
		case "r", "replay":
			p.Replay()
			s.typeLine(context.Background(), p.Line())
			continue
		case "m", "mute":
			if s.provider.ToggleMute() {
				colours.Warning.Fprintln(s.out, "🔇 Narration muted")
			} else {
				colours.Success.Fprintln(s.out, "🔊 Narration on")
			}
			continue
		}
		return input, nil
	}
}

func (s *Shell) readLine(prompt string) (string, error) {
	colours.Prompt.Fprint(s.out, prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		fmt.Fprintln(s.out)
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// typeLine waits for line to start and prints its words as the revealer
// shows them.
func (s *Shell) typeLine(ctx context.Context, line *course.Line) {
	if line == nil {
		return
	}
	words := strings.Fields(line.Text)
	colours.Speaker.Fprintf(s.out, "%s: ", speakerName(line.Character))

	if !s.awaitStart(ctx, line.Text) {
		fmt.Fprintln(s.out, line.Text)
		return
	}

	printed := 0
	ticker := s.clock.Ticker(s.poll)
	defer ticker.Stop()
	limit := s.clock.After(lineLimit)
	for {
		f := s.rev.Frame()
		if f.Shown > printed && f.Total == len(words) {
			s.printWords(words, printed, f.Shown)
			printed = f.Shown
		}
		if f.Done {
			break
		}
		select {
		case <-ticker.C:
			continue
		case <-limit:
			s.log.WithField("words", len(words)).Debug("narration took too long, showing full line")
		case <-ctx.Done():
		}
		s.rev.Complete()
		s.printWords(words, printed, len(words))
		break
	}
	fmt.Fprintln(s.out)
}

func (s *Shell) printWords(words []string, from, to int) {
	if from >= to {
		return
	}
	if from > 0 {
		fmt.Fprint(s.out, " ")
	}
	fmt.Fprint(s.out, strings.Join(words[from:to], " "))
}

// awaitStart waits until text was handed to the narrator.
func (s *Shell) awaitStart(ctx context.Context, text string) bool {
	timeout := s.clock.After(s.delay + startGrace)
	for {
		select {
		case got := <-s.nar.started:
			if got == text {
				return true
			}
		case <-timeout:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func speakerName(c course.Character) string {
	switch c {
	case course.CharacterPriya:
		return "Priya"
	case course.CharacterLearner:
		return "You"
	}
	return "Narrator"
}
