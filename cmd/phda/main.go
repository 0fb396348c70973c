// Phda is a personal health data logging agent.
//
// It turns natural language health reports ("20 min sauna at 10:12am",
// "two cold brews this morning") into structured rows in a SQLite
// database, using a local Ollama model for parsing and tool calling.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	phda serve              Start the API server
//	phda log <text>         Log a single entry from the command line
//	phda version            Print version and build information
//	phda -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mcnewcp/phda-logger/internal/agent"
	"github.com/mcnewcp/phda-logger/internal/api"
	"github.com/mcnewcp/phda-logger/internal/buildinfo"
	"github.com/mcnewcp/phda-logger/internal/config"
	"github.com/mcnewcp/phda-logger/internal/llm"
	"github.com/mcnewcp/phda-logger/internal/memory"
	"github.com/mcnewcp/phda-logger/internal/records"
	"github.com/mcnewcp/phda-logger/internal/search"
	"github.com/mcnewcp/phda-logger/internal/timeparse"
	"github.com/mcnewcp/phda-logger/internal/tools"
	"github.com/mcnewcp/phda-logger/internal/tracing"
)

// main constructs the OS-level environment and delegates to run so the
// full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand. The flag package relies on package-level
// globals, which interferes with calling run() concurrently from tests,
// and the argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "log":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: phda log <text>")
		}
		return runLog(ctx, stdout, stderr, configPath, strings.Join(cmdArgs, " "))
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "phda - Personal Health Data Logging Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: phda [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  log <text>   Log a single entry from the command line")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/phda/config.yaml, /etc/phda/config.yaml")
	return nil
}

// newLogger builds a text slog logger with trace-level name mapping.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig loads the config from the explicit path or the search
// paths, falling back to defaults when nothing is found and no path
// was demanded.
func loadConfig(configPath string) (*config.Config, string, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		if configPath != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// buildAgent constructs the full tool-calling stack from config: record
// store, conversation store, time resolver, search providers, tool
// registry, executor, and controller.
type agentStack struct {
	store      *records.Store
	convs      *memory.Store
	controller *agent.Controller
	executor   *tools.Executor
	ollama     *llm.OllamaClient
	tracing    *tracing.Provider
}

func (s *agentStack) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.convs != nil {
		s.convs.Close()
	}
}

func buildAgent(ctx context.Context, logger *slog.Logger, cfg *config.Config, withConversations bool) (*agentStack, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	stack := &agentStack{}

	store, err := records.Open(filepath.Join(cfg.DataDir, "health.db"))
	if err != nil {
		return nil, fmt.Errorf("open health database: %w", err)
	}
	stack.store = store
	logger.Info("health database opened", "path", filepath.Join(cfg.DataDir, "health.db"))

	if withConversations {
		convs, err := memory.Open(filepath.Join(cfg.DataDir, "conversations.db"), cfg.Agent.HistoryMessages)
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("open conversation database: %w", err)
		}
		stack.convs = convs
	}

	resolver, err := timeparse.NewResolver(cfg.Owner.Timezone, cfg.Agent.MorningHour)
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("time resolver: %w", err)
	}

	// Tracing. Disabled config installs a no-op provider.
	tp, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
		Project:  cfg.Tracing.Project,
	})
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("tracing setup: %w", err)
	}
	stack.tracing = tp
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint, "project", cfg.Tracing.Project)
	}

	// Tool registry: the six log writers, the calculator, and web
	// search when a provider is configured.
	registry := tools.NewRegistry()
	healthlog := tools.NewHealthLog(store, resolver, cfg.Owner.ID)
	healthlog.RegisterAll(registry)
	registry.Register(tools.CalculatorTool())

	mgr := search.NewManager(cfg.Search.Primary)
	if cfg.Search.Brave.APIKey != "" {
		mgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if cfg.Search.SearXNG.URL != "" {
		mgr.Register(search.NewSearXNG(cfg.Search.SearXNG.URL))
	}
	if mgr.Configured() {
		registry.Register(&tools.Tool{
			Name:        "web_search",
			Description: "Search the web for nutrition facts, caffeine content, and similar reference values. Returns a short list of result snippets.",
			Parameters:  search.ToolDefinition(),
			Handler:     tools.Handler(search.ToolHandler(mgr, cfg.Agent.MaxSearchHits)),
		})
	} else {
		logger.Warn("no search provider configured - web_search tool unavailable")
	}

	executor := tools.NewExecutor(registry, cfg.Agent.ToolTimeout, logger)
	executor.SetTracer(tp.Tracer())
	stack.executor = executor

	stack.ollama = llm.NewOllamaClient(cfg.Model.OllamaURL)

	loc := resolver.Location()
	controller := agent.New(logger, stack.ollama, registry, executor, agent.Options{
		Model:         cfg.Model.Name,
		MaxIterations: cfg.Agent.MaxIterations,
		ModelTimeout:  cfg.Agent.ModelTimeout,
		Location:      loc,
	})
	controller.SetTracer(tp.Tracer())
	stack.controller = controller

	return stack, nil
}

// runLog handles "phda log <text>": one agent turn, no server, no
// conversation persistence.
func runLog(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, text string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.LogLevel != "" {
		level, _ = config.ParseLogLevel(cfg.LogLevel)
	}
	logger := newLogger(stderr, level)
	logger.Debug("config loaded", "path", cfgPath)

	stack, err := buildAgent(ctx, logger, cfg, false)
	if err != nil {
		return err
	}
	defer stack.Close()
	defer func() {
		if err := stack.tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	res, err := stack.controller.Run(ctx, nil, text)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	fmt.Fprintln(stdout, res.Content)
	return nil
}

// runServe is the primary operating mode: load config, open databases,
// start the API server, and block until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting phda", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	listen := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	logger.Info("config loaded",
		"path", cfgPath,
		"listen", listen,
		"model", cfg.Model.Name,
		"ollama_url", cfg.Model.OllamaURL,
		"timezone", cfg.Owner.Timezone,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := buildAgent(ctx, logger, cfg, true)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Probe the model endpoint. A dead Ollama is worth a loud warning
	// but not a refusal to start; it may come up later.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := stack.ollama.Ping(pingCtx); err != nil {
		logger.Warn("ollama unreachable at startup", "url", cfg.Model.OllamaURL, "error", err)
	} else {
		logger.Info("ollama reachable", "url", cfg.Model.OllamaURL)
	}
	pingCancel()

	server := api.NewServer(listen, stack.controller, stack.convs, cfg.Owner.ID, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := stack.tracing.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}

	return nil
}
