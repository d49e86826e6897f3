package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/loader"
	"github.com/zhouzirui/dealer-chat/backend/internal/logging"
	"github.com/zhouzirui/dealer-chat/backend/internal/widget"
)

var (
	serverURL   = flag.String("server", "http://localhost:8080", "Relay server base URL")
	pageURL     = flag.String("page-url", "http://localhost:3000/", "URL of the host page the widget pretends to be embedded in")
	storagePath = flag.String("storage", defaultStoragePath(), "File used as the widget's local storage; empty keeps it in memory")
	logLevel    = flag.String("log-level", "warn", "Log level")
)

func main() {
	flag.Parse()
	logging.Setup(*logLevel, "console")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	view := newTerminalView(os.Stdout)
	opts := []loader.Option{
		loader.WithAPIURL(strings.TrimRight(*serverURL, "/") + widget.DefaultAPIURL),
		loader.WithView(view),
	}
	if *storagePath != "" {
		opts = append(opts, loader.WithStorage(widget.NewFileStorage(*storagePath)))
	}

	cfg, err := loader.Boot(*pageURL, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if p, err := fetchProfile(ctx, *serverURL, cfg.CustomerDomain); err != nil {
		log.Warn().Err(err).Str("domain", cfg.CustomerDomain).Msg("widget profile unavailable, using defaults")
	} else {
		cfg.WelcomeMessage = p.WelcomeMessage
		if p.PrimaryColor != "" {
			cfg.Theme.PrimaryColor = p.PrimaryColor
		}
		view.title = p.DisplayName
	}

	w, err := widget.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Println(boldGreen("Dealer chat widget"))
	fmt.Printf("Mounted in #%s for %s\n", w.ContainerID(), cfg.CustomerDomain)
	fmt.Println("Commands: /open, /close, /history. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	w.Toggle()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print(boldGreen("You: "))
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			w.Wait()
			return
		case line, ok = <-lines:
		}
		if !ok {
			w.Wait()
			return
		}

		switch cmd := strings.TrimSpace(line); strings.ToLower(cmd) {
		case "exit":
			w.Wait()
			return
		case "/open":
			if !w.IsOpen() {
				w.Toggle()
			}
			continue
		case "/close":
			if w.IsOpen() {
				w.Toggle()
			}
			continue
		case "/history":
			view.replay(w.Messages())
			continue
		}

		if !w.IsOpen() {
			fmt.Println("The chat window is closed. Type /open first.")
			continue
		}

		w.SetInput(line)
		if err := w.Submit(ctx, w.Input()); err != nil && !errors.Is(err, widget.ErrEmptyMessage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

type widgetProfile struct {
	DisplayName    string `json:"displayName"`
	WelcomeMessage string `json:"welcomeMessage"`
	PrimaryColor   string `json:"primaryColor"`
}

func fetchProfile(ctx context.Context, server, domain string) (widgetProfile, error) {
	endpoint := strings.TrimRight(server, "/") + "/api/widget/" + url.PathEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return widgetProfile{}, errors.Wrap(err, "build profile request")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return widgetProfile{}, errors.Wrap(err, "fetch profile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return widgetProfile{}, errors.Errorf("profile request returned %d", resp.StatusCode)
	}
	var p widgetProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return widgetProfile{}, errors.Wrap(err, "decode profile")
	}
	return p, nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dealer-chat", "widget-storage.json")
}
