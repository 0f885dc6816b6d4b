// ABOUTME: Terminal client for WellnessGPT with readline input
// ABOUTME: Renders conversation turns and cards inline; #n clicks numbered widgets

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/config"
	"github.com/2389/wellness-client/internal/logging"
	"github.com/2389/wellness-client/internal/store"
	"github.com/2389/wellness-client/internal/termui"
	"github.com/2389/wellness-client/internal/transport"
)

const prompt = "\033[36m›\033[0m "

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Config file (YAML or TOML)")
	serviceURL := flag.String("service", "", "Conversation service URL (overrides config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *serviceURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, configPath, serviceURL string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serviceURL != "" {
		cfg.Service.URL = serviceURL
	}

	logger, closeLog, err := logging.Open(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := transport.New(cfg.Service.URL, transport.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	sessionID := uuid.NewString()
	if err := st.CreateSession(ctx, &store.Session{ID: sessionID, Frontend: "tui"}); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile(),
		HistoryLimit:    500,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	view := termui.New(rl.Stdout(), termui.WithInputHook(func(enabled bool, placeholder string) {
		if enabled {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(color.HiBlackString(placeholder) + " ")
		}
		rl.Refresh()
	}))

	ctrl, err := chat.New(chat.Options{
		Transport: client,
		View:      view,
		Logger:    logger.With("session_id", sessionID),
		Pacing: chat.Pacing{
			Greeting:    cfg.Chat.Pacing.Greeting,
			Reply:       cfg.Chat.Pacing.Reply,
			Suggestions: cfg.Chat.Pacing.Suggestions,
		},
		Timeout:               cfg.Service.Timeout,
		HeuristicConfirmation: cfg.Chat.HeuristicConfirmation,
		Greeting:              cfg.Chat.Greeting,
		Labels:                chat.NewAgentLabels(cfg.Chat.AgentLabels),
		PlaceholderImage:      cfg.Chat.PlaceholderImage,
		Recorder:              store.NewRecorder(st, sessionID),
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	fmt.Fprintf(rl.Stdout(), "wellness-tui connected to %s\n", cfg.Service.URL)
	fmt.Fprintln(rl.Stdout(), "Type a message and press Enter. #n picks card n. /help for commands.")
	fmt.Fprintln(rl.Stdout())

	t := &tui{
		ctx:       ctx,
		out:       rl.Stdout(),
		ctrl:      ctrl,
		view:      view,
		store:     st,
		client:    client,
		sessionID: sessionID,
		logger:    logger,
	}
	defer t.wait()

	t.spawn(func(ctx context.Context) { ctrl.Greet(ctx) })
	return t.loop(rl)
}

// tui owns the input loop and the turns it starts.
type tui struct {
	ctx       context.Context
	out       io.Writer
	ctrl      *chat.Controller
	view      *termui.View
	store     store.Store
	client    *transport.Client
	sessionID string
	logger    *slog.Logger

	turns sync.WaitGroup
}

func (t *tui) loop(rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// Ctrl+C cancels a turn in flight, or quits when idle.
			if t.ctrl.Cancel() {
				fmt.Fprintln(t.out, color.YellowString("  cancelled"))
				continue
			}
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading input: %w", err)
		}
		if t.ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := t.handle(line); quit {
			return nil
		}
	}
}

// handle runs one input line. It reports whether the user asked to quit.
func (t *tui) handle(line string) bool {
	if strings.HasPrefix(line, "/") {
		return t.command(line)
	}

	// Only #n clicks; a bare number is an answer like any other text.
	if strings.HasPrefix(line, "#") {
		id, ok := t.view.Resolve(line)
		if !ok {
			fmt.Fprintf(t.out, "  nothing numbered %s on screen\n", strings.TrimPrefix(line, "#"))
			return false
		}
		if !t.ready() {
			return false
		}
		t.spawn(func(ctx context.Context) { t.ctrl.Click(ctx, id) })
		return false
	}

	if !t.ready() {
		return false
	}
	t.spawn(func(ctx context.Context) { t.ctrl.Submit(ctx, chat.TextInput(line)) })
	return false
}

func (t *tui) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		t.ctrl.Cancel()
		return true
	case "/help", "/?":
		t.help()
	case "/cancel":
		if !t.ctrl.Cancel() {
			fmt.Fprintln(t.out, "  nothing to cancel")
		}
	case "/selection":
		t.selection()
	case "/history":
		limit := 20
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				fmt.Fprintln(t.out, "  usage: /history [count]")
				return false
			}
			limit = n
		}
		t.history(limit)
	case "/health":
		ctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
		defer cancel()
		if err := t.client.Health(ctx); err != nil {
			fmt.Fprintf(t.out, "  %s %v\n", color.RedString("✗"), err)
		} else {
			fmt.Fprintf(t.out, "  %s %s is healthy\n", color.GreenString("✓"), t.client.BaseURL())
		}
	default:
		fmt.Fprintf(t.out, "  unknown command %s, try /help\n", fields[0])
	}
	return false
}

// ready reports whether a new turn can start, telling the user when not.
func (t *tui) ready() bool {
	if t.ctrl.State() == chat.TurnLocked {
		fmt.Fprintln(t.out, color.HiBlackString("  still working on the last message (Ctrl+C cancels)"))
		return false
	}
	return true
}

func (t *tui) spawn(fn func(ctx context.Context)) {
	t.turns.Add(1)
	go func() {
		defer t.turns.Done()
		fn(t.ctx)
	}()
}

func (t *tui) wait() {
	t.ctrl.Cancel()
	t.turns.Wait()
}

func (t *tui) help() {
	fmt.Fprintln(t.out, `  #n            pick numbered card, button or suggestion n
  /selection     show current selections and agent
  /history [n]   show the last n recorded messages
  /health        check the conversation service
  /cancel        cancel the message in flight (also Ctrl+C)
  /quit          exit`)
}

func (t *tui) selection() {
	app := t.ctrl.App()
	snapshot := app.Selection.Snapshot()
	if len(snapshot) == 0 {
		fmt.Fprintln(t.out, "  no selections")
	}
	categories := make([]string, 0, len(snapshot))
	for c := range snapshot {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(t.out, "  %-11s %s\n", c, snapshot[chat.Category(c)])
	}
	if agent := app.Agent.Current(); agent != "" {
		fmt.Fprintf(t.out, "  %-11s %s\n", "agent", agent)
	}
}

func (t *tui) history(limit int) {
	msgs, err := t.store.GetSessionMessages(t.ctx, t.sessionID, limit)
	if err != nil {
		t.logger.Error("loading history", "error", err)
		fmt.Fprintf(t.out, "  %s %v\n", color.RedString("✗"), err)
		return
	}
	if len(msgs) == 0 {
		fmt.Fprintln(t.out, "  no messages yet")
		return
	}
	for _, m := range msgs {
		who := "you"
		if m.Sender != string(chat.SenderUser) {
			who = m.AgentID
			if who == "" {
				who = "bot"
			}
		}
		text := m.Text
		if text == "" && len(m.Cards) > 0 {
			text = "[cards]"
		}
		fmt.Fprintf(t.out, "  %s %-12s %s\n", color.HiBlackString(m.CreatedAt.Local().Format("15:04")), who, text)
	}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("/help"),
	readline.PcItem("/selection"),
	readline.PcItem("/history"),
	readline.PcItem("/health"),
	readline.PcItem("/cancel"),
	readline.PcItem("/quit"),
)

// historyFile keeps input history next to other XDG state; empty disables it.
func historyFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	dir = filepath.Join(dir, "wellness")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "tui_history")
}
