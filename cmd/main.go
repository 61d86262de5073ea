package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pmsim/internal/cli/scheme/colours"
	"pmsim/internal/config"
	"pmsim/internal/domain/course"
	"pmsim/internal/domain/course/loader"
	"pmsim/internal/lesson/progress"
	"pmsim/internal/lesson/shell"
	"pmsim/internal/lesson/voice"
)

// app holds what the commands share once configuration is loaded.
type app struct {
	ctx      context.Context
	settings config.Settings
	secrets  config.Secrets
	tracker  *progress.Tracker
	shell    *shell.Shell
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &app{ctx: ctx}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		if a.shell != nil {
			a.shell.Close()
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Keep shipping."))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "pmsim",
		Short: "🧭 A narrated simulator for AI product managers",
		Long: `
┌─────────────────────────────────────┐
│  🧭 Welcome to the AI PM Simulator  │
│  Short sessions, real decisions     │
└─────────────────────────────────────┘

Work through stages and days of product scenarios: try the exercise, learn
the concept, make the call in a branching scenario, then apply it in a quiz.
		`,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShell(func(s *shell.Shell) error {
				s.Welcome()
				return nil
			})
		},
		SilenceUsage: true,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List stages, sessions and days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withShell(func(s *shell.Shell) error {
				s.List()
				return nil
			})
		},
	}

	playCmd := &cobra.Command{
		Use:   "play [session-id]",
		Short: "▶️  Play a session",
		Long:  "Play a session by id, or the first session not yet completed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return a.withShell(func(s *shell.Shell) error {
				return s.PlaySession(a.ctx, id)
			})
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day [n]",
		Short: "📅 Play a day of clusters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid day %q: %w", args[0], err)
				}
				n = v
			}
			return a.withShell(func(s *shell.Shell) error {
				return s.PlayDay(a.ctx, n)
			})
		},
	}

	sayCmd := &cobra.Command{
		Use:   "say <text>",
		Short: "🗣️  Narrate a line with the configured voice",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as, _ := cmd.Flags().GetString("as")
			return a.withShell(func(s *shell.Shell) error {
				s.Say(a.ctx, strings.Join(args, " "), course.Character(as))
				return nil
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "✅ Check content files for integrity errors",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.validate,
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 Show voice backends, voices and the audio cache",
		RunE:  a.voices,
	}

	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "📦 Manage remote content",
	}
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "🔄 Fetch remote content and update the cache",
		RunE:  a.refreshContent,
	}
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "ℹ️  Show the remote content cache",
		RunE:  a.contentStatus,
	}
	contentCmd.AddCommand(refreshCmd, statusCmd)

	// Add flags
	pf := rootCmd.PersistentFlags()
	pf.Bool("mute", false, "Start with narration muted")
	pf.String("provider", "", "Voice provider: auto, sarvam, openai, google, native or silent")
	pf.String("content", "", "Content file or directory (defaults to the bundled sample)")
	pf.BoolP("verbose", "v", false, "Verbose logging")
	viper.BindPFlag("voice.muted", pf.Lookup("mute"))
	viper.BindPFlag("voice.provider", pf.Lookup("provider"))
	viper.BindPFlag("content.path", pf.Lookup("content"))

	sayCmd.Flags().String("as", string(course.CharacterNarrator), "Character voice: narrator, priya or learner")
	voicesCmd.Flags().Bool("remote", false, "List the voices offered by the Google backend")
	voicesCmd.Flags().Bool("clear-cache", false, "Delete cached audio")

	rootCmd.AddCommand(listCmd, playCmd, dayCmd, sayCmd, validateCmd, voicesCmd, contentCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	viper.SetConfigName("pmsim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.pmsim")
	viper.AddConfigPath(".")
	config.SetDefaults(viper.GetViper())
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	logrus.SetLevel(logrus.WarnLevel)
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return err
	}
	a.settings = settings
	a.secrets = secrets
	a.tracker = progress.NewTracker(progress.WithLevelThreshold(settings.LevelThreshold))
	return nil
}

func (a *app) loader() loader.Loader {
	c := a.settings.Content
	return loader.Select(c.Path, c.RemoteURL, c.CacheDir, c.MaxAge)
}

// withShell loads content and a voice provider, then runs f on a shell.
func (a *app) withShell(f func(*shell.Shell) error) error {
	content, err := a.loader().Load(a.ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	provider, err := voice.NewProvider(a.ctx, a.settings.Voice, a.secrets.Credentials())
	if err != nil {
		logrus.WithError(err).Warn("Voice unavailable, narrating silently")
		provider = voice.NewSilentProvider(nil, a.settings.Voice.Pacing)
		if a.settings.Voice.Muted {
			provider.ToggleMute()
		}
	}

	a.shell = shell.New(os.Stdin, os.Stdout, content, a.tracker, provider,
		shell.WithNarrationDelay(a.settings.NarrationDelay),
		shell.WithReveal(a.settings.Reveal.Speed, a.settings.Reveal.Floor, a.settings.Voice.Pacing.Default),
	)
	defer a.shell.Close()
	return f(a.shell)
}

func (a *app) validate(cmd *cobra.Command, args []string) error {
	l := a.loader()
	source := "bundled sample"
	switch c := a.settings.Content; {
	case c.RemoteURL != "":
		source = c.RemoteURL
	case c.Path != "":
		source = c.Path
	}
	if len(args) == 1 {
		l = loader.NewFileLoader(args[0])
		source = args[0]
	}
	c, err := l.Load(a.ctx)
	if err != nil {
		var verr *course.ValidationError
		if errors.As(err, &verr) {
			colours.Error.Printf("❌ %d problem(s) in %s:\n", len(verr.Problems), source)
			for _, p := range verr.Problems {
				fmt.Printf("  • %s\n", p)
			}
			return errors.New("content is invalid")
		}
		return err
	}
	sessions := 0
	for _, st := range c.Stages {
		sessions += len(st.Sessions)
	}
	colours.Success.Printf("✅ %s is valid: %d stage(s), %d session(s), %d day(s)\n",
		source, len(c.Stages), sessions, len(c.Days))
	return nil
}

func (a *app) voices(cmd *cobra.Command, args []string) error {
	creds := a.secrets.Credentials()
	cfg := a.settings.Voice

	fmt.Println()
	colours.Title.Println("🎤 Voice backends")
	resolved := voice.Resolve(cfg.Provider, creds)
	for _, p := range voice.Available(creds) {
		mark := "  "
		if p == resolved {
			mark = colours.Success.Sprint("▶ ")
		}
		fmt.Printf("  %s%s\n", mark, p)
	}
	fmt.Println()

	colours.Info.Println("🎭 Characters")
	for _, c := range []course.Character{course.CharacterNarrator, course.CharacterPriya, course.CharacterLearner} {
		fmt.Printf("  %-9s sarvam=%s openai=%s google=%s\n", c,
			voice.SarvamVoices.For(c), voice.OpenAIVoices.For(c), voice.GoogleVoices.For(c))
	}

	if voice.NativeAvailable() {
		names, err := voice.NativeVoices(a.ctx)
		if err != nil {
			logrus.WithError(err).Warn("could not list native voices")
		} else {
			colours.Info.Printf("\n🔈 Native voices (%d)\n", len(names))
			for _, n := range names {
				fmt.Printf("  %s\n", n)
			}
		}
	}

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		g, err := voice.NewGoogleSynthesizer(a.ctx)
		if err != nil {
			return err
		}
		defer g.Close()
		names, err := g.Voices(a.ctx)
		if err != nil {
			return err
		}
		colours.Info.Printf("\n☁️  Google voices (%d)\n", len(names))
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}

	if cfg.CachePath == "" {
		return nil
	}
	wipe, _ := cmd.Flags().GetBool("clear-cache")
	colours.Info.Println("\n💾 Audio cache")
	for _, p := range []voice.ProviderType{voice.ProviderSarvam, voice.ProviderOpenAI, voice.ProviderGoogle} {
		cache, err := voice.NewCachedSynthesizer(nil, filepath.Join(cfg.CachePath, p.String()))
		if err != nil {
			return err
		}
		if wipe {
			if err := cache.Clear(); err != nil {
				return err
			}
		}
		stats, err := cache.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("  %-7s %3d file(s) %8d bytes  %s\n", p, stats.Files, stats.Bytes, stats.Dir)
	}
	return nil
}

func (a *app) remote() (*loader.Remote, error) {
	c := a.settings.Content
	if c.RemoteURL == "" {
		return nil, errors.New("content.remote_url is not configured")
	}
	return loader.NewRemote(c.RemoteURL, c.CacheDir, c.MaxAge), nil
}

func (a *app) refreshContent(cmd *cobra.Command, args []string) error {
	r, err := a.remote()
	if err != nil {
		return err
	}
	colours.Info.Println("🔄 Refreshing content...")
	if _, err := r.Refresh(a.ctx); err != nil {
		return fmt.Errorf("failed to refresh content: %w", err)
	}
	st := r.Status()
	colours.Success.Printf("✨ Cached %d session(s) in %s\n", st.Sessions, st.File)
	return nil
}

func (a *app) contentStatus(cmd *cobra.Command, args []string) error {
	r, err := a.remote()
	if err != nil {
		return err
	}
	st := r.Status()
	fmt.Println()
	colours.Title.Println("📦 Content cache")
	fmt.Printf("  File:    %s\n", st.File)
	if !st.Exists {
		colours.Warning.Println("  No cache yet. Run 'pmsim content refresh'.")
		return nil
	}
	freshness := colours.Success.Sprint("fresh")
	if !st.Fresh {
		freshness = colours.Warning.Sprint("stale")
	}
	fmt.Printf("  Updated: %s (%s, max age %s)\n", st.LastUpdated.Format("2006-01-02 15:04"), freshness, st.MaxAge)
	fmt.Printf("  Size:    %d bytes, %d session(s)\n", st.Size, st.Sessions)
	return nil
}
