// Command toyrobot simulates a toy robot moving on a square tabletop.
//
// It supports three modes:
//  1. "run" (default) – reads commands from a file or stdin and prints every REPORT to stdout
//  2. "server" – runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp endpoint
//  3. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Every flag can also be set through the environment, and a .env file in the
// working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/rodneysantos/toy-robot/api"
	"github.com/rodneysantos/toy-robot/script"
	"github.com/rodneysantos/toy-robot/sim/config"
	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
	"github.com/rodneysantos/toy-robot/sim/session"
	"github.com/rodneysantos/toy-robot/telemetry"
	"github.com/rodneysantos/toy-robot/transport/mcp"
	"github.com/rodneysantos/toy-robot/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Toy Robot Simulator"
)

const (
	defaultCommandsFile = "commands.txt"
	metricsNamespace    = "toyrobot"

	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("toyrobot failed")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "toyrobot",
		Usage:   "toy robot simulator",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging with caller information",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				Usage:   "log output format: console or json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "trace, debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			runCommand(),
			serverCommand(),
			mcpCommand(),
		},
		DefaultCommand: "run",
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := cmd.String("log-level")
	if cmd.Bool("debug") {
		level = "debug"
	}
	telemetry.SetupGlobal(telemetry.LogConfig{
		Level:  level,
		Format: cmd.String("log-format"),
		Caller: cmd.Bool("debug"),
	})
	return ctx, nil
}

// Flags shared by the modes that load table configs and sessions
func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "configs",
		Usage:   "directory containing table configurations",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		configDirFlag(),
		&cli.StringFlag{
			Name:    "sessions-dir",
			Value:   "sessions",
			Usage:   "directory for the file session store",
			Sources: cli.EnvVars("SESSIONS_DIR"),
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   "file",
			Usage:   "session store: file, sqlite or memory",
			Sources: cli.EnvVars("SESSION_STORE"),
		},
		&cli.StringFlag{
			Name:    "sqlite-path",
			Value:   "sessions.db",
			Usage:   "database file for the sqlite session store",
			Sources: cli.EnvVars("SQLITE_PATH"),
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a command file and print every REPORT",
		ArgsUsage: "[FILE]",
		Description: "FILE defaults to " + defaultCommandsFile + "; use - to read stdin.\n" +
			"Blank lines separate batches, and each batch starts with a fresh robot.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "width",
				Value:   engine.DefaultWidth,
				Usage:   "table width",
				Sources: cli.EnvVars("TABLE_WIDTH"),
			},
			&cli.IntFlag{
				Name:    "height",
				Value:   engine.DefaultHeight,
				Usage:   "table height",
				Sources: cli.EnvVars("TABLE_HEIGHT"),
			},
			&cli.StringFlag{
				Name:    "table",
				Usage:   "named table config from --config-dir, overrides --width and --height",
				Sources: cli.EnvVars("TABLE"),
			},
			configDirFlag(),
			&cli.BoolFlag{
				Name:    "strict",
				Usage:   "stop at the first rejected PLACE",
				Sources: cli.EnvVars("STRICT"),
			},
		},
		Action: runCommands,
	}
}

func runCommands(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = defaultCommandsFile
	}

	var input io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open commands: %w", err)
		}
		defer f.Close()
		input = f
	}

	table, err := tableConfig(cmd)
	if err != nil {
		return err
	}

	batches, err := script.Parse(input)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	runner := &script.Runner{
		Out:    stdout(cmd),
		Table:  table,
		Strict: cmd.Bool("strict"),
		Logger: log.Logger,
	}

	summary, err := runner.Run(ctx, batches)
	log.Debug().
		Str("file", path).
		Int("batches", summary.Batches).
		Int("commands", summary.Commands).
		Int("failures", summary.Failures).
		Msg("run finished")
	return err
}

// tableConfig resolves the table of the run command
func tableConfig(cmd *cli.Command) (*engine.TableConfig, error) {
	if name := cmd.String("table"); name != "" {
		configs, err := config.NewManager(cmd.String("config-dir"))
		if err != nil {
			return nil, err
		}
		return configs.LoadConfig(name)
	}

	width, height := int(cmd.Int("width")), int(cmd.Int("height"))
	if width == engine.DefaultWidth && height == engine.DefaultHeight {
		return engine.DefaultTableConfig(), nil
	}

	table := &engine.TableConfig{
		Name:   fmt.Sprintf("%dx%d", width, height),
		Width:  width,
		Height: height,
	}
	if err := engine.ValidateTableConfig(table); err != nil {
		return nil, err
	}
	return table, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func serverCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "expose the server through an ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}

	return &cli.Command{
		Name:    "server",
		Aliases: []string{"http"},
		Usage:   "run the HTTP server with REST API, WebSocket, metrics and MCP endpoint",
		Flags:   append(flags, storeFlags()...),
		Action:  runHTTPServer,
	}
}

func mcpCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Value:   "http://localhost:8080",
			Usage:   "REST API to proxy to when it is already running",
			Sources: cli.EnvVars("API_URL"),
		},
	}

	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server",
		Flags:   append(flags, storeFlags()...),
		Action:  runStdioMCP,
	}
}

// services is the wired application core
type services struct {
	robot    service.RobotService
	sessions *session.Manager
	configs  *config.Manager
	store    session.SessionPersistence
	metrics  *telemetry.Metrics
}

type serviceOptions struct {
	ConfigDir   string
	SessionsDir string
	Store       string
	SQLitePath  string
}

func serviceOptionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		Store:       cmd.String("store"),
		SQLitePath:  cmd.String("sqlite-path"),
	}
}

// initializeServices wires the config manager, session store and robot service
func initializeServices(opts serviceOptions) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	var store session.SessionPersistence
	switch opts.Store {
	case "memory":
	case "sqlite":
		store, err = session.NewSQLitePersistence(opts.SQLitePath)
	case "file", "":
		store, err = session.NewFilePersistence(opts.SessionsDir)
	default:
		err = fmt.Errorf("unknown session store %q", opts.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManager()
	if store != nil {
		sessionManager = session.NewManagerWithPersistence(store)
		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	}

	metrics := telemetry.NewMetrics(metricsNamespace)
	robotService := service.NewRobotService(sessionManager, configManager, service.WithMetrics(metrics))

	return &services{
		robot:    robotService,
		sessions: sessionManager,
		configs:  configManager,
		store:    store,
		metrics:  metrics,
	}, nil
}

// Close flushes every session and releases the store
func (s *services) Close() error {
	err := s.sessions.SaveAllSessions()
	if closer, ok := s.store.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// startBackground runs session cleanup, store sync and the config watcher until ctx is done
func (s *services) startBackground(ctx context.Context) {
	go sessionCleanupRoutine(ctx, s.sessions, s.metrics)
	if s.store != nil {
		go storeSyncRoutine(ctx, s.sessions, s.store)
	}

	err := s.configs.Watch(ctx, log.Logger, func(id string) {
		log.Info().Str("config", id).Msg("table config changed")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher disabled")
	}
}

// sessionCleanupRoutine periodically evicts sessions that have not been accessed
// within the retention window
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, metrics *telemetry.Metrics) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
				metrics.SetActiveSessions(manager.Count())
			}
		}
	}
}

// storeSyncRoutine drops sessions from memory once their stored copy is deleted
func storeSyncRoutine(ctx context.Context, manager *session.Manager, store session.SessionPersistence) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, store)
		}
	}
}

func pruneOrphans(manager *session.Manager, store session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if store.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Info().Str("session", sess.ID).Msg("pruned session from memory (stored copy deleted)")
		}
	}
	return pruned
}

// newHandler combines the REST API with the /mcp endpoint
func newHandler(svc *services, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(svc.robot, hub, api.WithMetrics(svc.metrics))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server and, when enabled, an ngrok tunnel.
// It returns after ctx is cancelled and the server has shut down.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(serviceOptionsFrom(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to flush sessions")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc.startBackground(ctx)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newHandler(svc, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("ws", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msgf("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			cancel()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// apiAvailable reports whether a simulator API answers at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one is
// running; otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")

	if apiAvailable(baseURL) {
		log.Info().Str("api", baseURL).Msg("using external API server for MCP")
	} else {
		svc, err := initializeServices(serviceOptionsFrom(cmd))
		if err != nil {
			return err
		}
		defer svc.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{
			Handler: api.NewServer(svc.robot, hub, api.WithMetrics(svc.metrics)),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.Info().Str("api", baseURL).Msg("started internal API server for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
