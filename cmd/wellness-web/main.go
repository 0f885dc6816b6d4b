// ABOUTME: Entry point for the WellnessGPT browser frontend
// ABOUTME: Serves the chat page and relays turns to the conversation service

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/config"
	"github.com/2389/wellness-client/internal/logging"
	"github.com/2389/wellness-client/internal/store"
	"github.com/2389/wellness-client/internal/transport"
	"github.com/2389/wellness-client/internal/webui"
)

// Version is set at build time.
var version = "dev"

const banner = `
 __      __   _ _
 \ \    / /__| | |_ _  ___ ______
  \ \/\/ / -_) | | ' \/ -_|_-<_-<
   \_/\_/\___|_|_|_||_\___/__/__/  web
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: wellness-web [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the web frontend (default)")
	fmt.Println("  health    Check the conversation service")
	fmt.Println()
	fmt.Println("Config is read from $WELLNESS_CONFIG or ~/.config/wellness/client.yaml.")
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := logging.Open(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog()

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Service:   %s\n", cfg.Service.URL)
	green.Print("    ▶ ")
	if cfg.Web.Tailscale.Enabled {
		fmt.Print("Tailscale: ")
		cyan.Print(cfg.Web.Tailscale.Hostname)
		if cfg.Web.Tailscale.Funnel {
			color.New(color.FgYellow).Print(" [funnel]")
		}
		fmt.Println()
	} else {
		fmt.Printf("HTTP:      http://%s\n", cfg.Web.HTTPAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n\n", cfg.Database.Path)

	client, err := transport.New(cfg.Service.URL, transport.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	srv, err := webui.New(webui.Options{
		Web:    cfg.Web,
		Chat:   chatOptions(cfg, client, logger),
		Store:  st,
		Health: client.Health,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	logger.Info("starting wellness-web", "config", configPath, "service_url", cfg.Service.URL)
	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	client, err := transport.New(cfg.Service.URL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service %s unhealthy: %w", cfg.Service.URL, err)
	}
	fmt.Printf("%s %s is healthy\n", color.GreenString("✓"), cfg.Service.URL)
	return nil
}

// chatOptions maps the chat and service sections onto controller options.
// View and Recorder are set per browser session.
func chatOptions(cfg *config.Config, t chat.Transport, logger *slog.Logger) chat.Options {
	return chat.Options{
		Transport: t,
		Logger:    logger,
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
	}
}
