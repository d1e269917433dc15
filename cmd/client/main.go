package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/aeolun/loungechat/pkg/client"
	"github.com/aeolun/loungechat/pkg/client/assets"
	slash "github.com/aeolun/loungechat/pkg/client/commands"
	"github.com/aeolun/loungechat/pkg/client/events"
	"github.com/aeolun/loungechat/pkg/client/mirror"
	"github.com/aeolun/loungechat/pkg/client/ui"
	"github.com/aeolun/loungechat/pkg/metrics"
	"github.com/aeolun/loungechat/pkg/updater"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

type options struct {
	configPath  string
	server      string
	user        string
	statePath   string
	metricsAddr string
	debug       bool
	resetConfig bool
	version     bool
	help        bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("loungechat", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", client.DefaultConfigPath(), "path to config file")
	flagSet.StringVarP(&opts.server, "server", "s", "", "The Lounge address, e.g. https://irc.example.org (overrides config)")
	flagSet.StringVarP(&opts.user, "user", "u", "", "account name on a private Lounge (overrides config)")
	flagSet.StringVar(&opts.statePath, "state", "", "path to state database (overrides config)")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	flagSet.BoolVar(&opts.debug, "debug", false, "log every frame to the log file")
	flagSet.BoolVar(&opts.resetConfig, "reset-config", false, "back up the config file and write defaults")
	flagSet.BoolVarP(&opts.version, "version", "v", false, "print version and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show this help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if opts.help {
		printHelp(flagSet)
		return nil
	}
	if opts.version {
		fmt.Printf("loungechat %s\n", Version)
		return nil
	}

	if opts.resetConfig {
		if err := client.ResetConfigToDefault(opts.configPath, true); err != nil {
			return fmt.Errorf("failed to reset config: %w", err)
		}
		fmt.Printf("Config reset to defaults: %s\n", opts.configPath)
		return nil
	}

	cfg, err := client.LoadClientConfig(opts.configPath)
	if err != nil {
		var cfgErr *client.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Config error in %s: %v\n", cfgErr.Path, cfgErr)
			fmt.Fprintln(os.Stderr, "Fix the file or run with --reset-config to start from defaults.")
			os.Exit(2)
		}
		return err
	}
	applyOverrides(&cfg, opts)

	logger, closeLog, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Printf("Starting loungechat %s against %s", Version, cfg.Connection.ServerURL)

	statePath, err := cfg.GetStateDBPath()
	if err != nil {
		return err
	}
	state, err := client.OpenState(statePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer state.Close()

	if err := promptPassword(&cfg.Connection, state); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.NewMetrics(reg)
	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr, reg, logger)
	}

	queue := events.NewQueue(
		events.WithLogger(logger),
		events.WithMetrics(mt),
		events.WithWarnDepth(cfg.Behavior.QueueWarnDepth),
	)

	conn, err := client.NewConnection(cfg.Connection, queue)
	if err != nil {
		return err
	}
	conn.SetLogger(logger)
	conn.SetDebug(opts.debug)
	conn.SetMetrics(mt)
	conn.SetState(state)

	mirrorOpts := []mirror.Option{
		mirror.WithLogger(logger),
		mirror.WithMetrics(mt),
		mirror.WithDedupHistory(cfg.Behavior.DedupeHistory),
	}
	if cfg.UI.Notifications {
		iconPath, err := assets.GetIconPath(state.GetStateDir(), state)
		if err != nil {
			logger.Printf("Notification icon unavailable: %v", err)
		}
		mirrorOpts = append(mirrorOpts, mirror.WithHighlightFunc(ui.DesktopNotifier(iconPath, logger)))
	}
	mir := mirror.New(queue, conn, mirrorOpts...)

	interceptor := slash.NewInterceptor(mir, conn)
	interceptor.SetLogger(logger)

	model := ui.NewModel(ui.Options{
		Conn:        conn,
		State:       state,
		Queue:       queue,
		Mirror:      mir,
		Interceptor: interceptor,
		UI:          cfg.UI,
		ServerURL:   cfg.Connection.ServerURL,
		User:        cfg.Connection.User,
		Version:     Version,
		Updater:     updater.NewChecker(),
		Logger:      logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	conn.Close()
	queue.Close()
	if n := mir.Drain(); n > 0 {
		logger.Printf("Applied %d queued events during shutdown", n)
	}
	if !mir.Empty() {
		if err := state.SetResumePoint(cfg.Connection.ServerURL, mir.ActiveID(), mir.LastMessageID()); err != nil {
			logger.Printf("Failed to save resume point: %v", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("error running program: %w", runErr)
	}
	return nil
}

// applyOverrides lets command line flags win over the config file
func applyOverrides(cfg *client.TOMLConfig, opts options) {
	if opts.server != "" {
		cfg.Connection.ServerURL = opts.server
	}
	if opts.user != "" {
		cfg.Connection.User = opts.user
	}
	if opts.statePath != "" {
		cfg.Local.StateDB = opts.statePath
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.ListenAddr = opts.metricsAddr
	}
	if pw := os.Getenv("LOUNGECHAT_PASSWORD"); pw != "" {
		cfg.Connection.Password = pw
	}
}

// openLog opens the log file. The TUI owns the terminal, so nothing is
// logged to stderr once it starts.
func openLog(cfg client.TOMLConfig) (*log.Logger, func(), error) {
	path, err := cfg.GetLogFilePath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", path, err)
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	return log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds), func() { f.Close() }, nil
}

// promptPassword asks for the account password on a private Lounge when no
// password is configured and no session token is stored. Without a terminal
// the TUI prompts instead.
func promptPassword(conn *client.ConnectionSection, state client.StateInterface) error {
	if conn.User == "" || conn.Password != "" {
		return nil
	}
	if session, err := state.GetSession(conn.ServerURL); err == nil && session.Token != "" && session.User == conn.User {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s on %s: ", conn.User, conn.ServerURL)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	conn.Password = strings.TrimRight(string(password), "\r\n")
	return nil
}

// serveMetrics exposes the registry on addr. Keep it on loopback.
func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	logger.Printf("Metrics listening on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("Metrics server error: %v", err)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `loungechat: terminal client for The Lounge IRC bouncer.

Usage:
  loungechat [flags]

Keys: Alt+Up/Alt+Down switch channels, PgUp loads older history, ? shows help.
Commands typed in the input line: /jump <channel>, /next, /prev, /help.

Flags:
`)
	flagSet.PrintDefaults()
}
