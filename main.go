// Command pixel-tactics starts the Pixel Tactics game server.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" checks level files and exits non-zero if any is invalid
//
// Flags control host/port, the level directory, where completed levels are
// recorded, logging, animation pacing, and optional ngrok tunneling for easy
// external access during development. Every flag can also be set from the
// environment or a .env file.
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
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/pixel-tactics/api"
	"github.com/wricardo/pixel-tactics/game/config"
	"github.com/wricardo/pixel-tactics/game/engine"
	"github.com/wricardo/pixel-tactics/game/progress"
	"github.com/wricardo/pixel-tactics/game/service"
	"github.com/wricardo/pixel-tactics/game/session"
	"github.com/wricardo/pixel-tactics/logger"
	"github.com/wricardo/pixel-tactics/transport/mcp"
	"github.com/wricardo/pixel-tactics/transport/websocket"
	"github.com/wricardo/pixel-tactics/validate"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pixel Tactics Server"
)

// main loads .env, then runs the command line application
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	app := newApp()
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Log.WithError(envErr).Warn("error loading .env file")
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Log.WithError(err).Fatal("exiting")
	}
}

// newApp builds the command tree. serve is also the root action.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pixel-tactics",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
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
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "Directory containing level files (JSON or YAML)",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.StringFlag{
				Name:    "progress-file",
				Value:   "progress.json",
				Usage:   "File recording completed levels",
				Sources: cli.EnvVars("PROGRESS_FILE"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL URL for completed levels; overrides --progress-file",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text or json)",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "Remove sessions not accessed for this long",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:    "fast",
				Usage:   "Skip animation delays in turn sequences",
				Sources: cli.EnvVars("FAST"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runMCP,
			},
			{
				Name:      "validate",
				Usage:     "Validate level files (defaults to every file in --levels-dir)",
				ArgsUsage: "[FILE...]",
				Action:    runValidate,
			},
		},
	}
}

// setupLogging configures the global logger from flags
func setupLogging(cmd *cli.Command, out io.Writer) {
	logger.Init(cmd.String("log-level"), cmd.String("log-format"), out)
}

// services is everything a running server needs
type services struct {
	game     service.GameService
	sessions *session.Manager
	progress progress.Store
}

// initializeServices wires the level manager, progress store, session manager
// and the game service. hub may be nil.
func initializeServices(cmd *cli.Command, hub *websocket.Hub) (*services, error) {
	levels, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	store, err := progress.Open(cmd.String("database-url"), cmd.String("progress-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to open progress store: %w", err)
	}

	timing := engine.DefaultTiming()
	if cmd.Bool("fast") {
		timing = engine.Timing{}
	}

	opts := []service.Option{
		service.WithProgress(store),
		service.WithEngineOptions(engine.WithTiming(timing)),
	}
	if hub != nil {
		opts = append(opts, service.WithNotifier(hub))
	}

	sessions := session.NewManager()
	return &services{
		game:     service.NewGameService(sessions, levels, opts...),
		sessions: sessions,
		progress: store,
	}, nil
}

// newRouter mounts the API at root and the MCP endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
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
	})

	return mainRouter
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, os.Stdout)
	logger.Log.WithField("version", Version).Infof("Starting %s", AppName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	svc, err := initializeServices(cmd, hub)
	if err != nil {
		return err
	}
	defer svc.progress.Close()

	go hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, time.Hour, cmd.Duration("session-ttl"))

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(api.NewServer(svc.game, hub), mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// End turn holds the request while the enemy turn plays out
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Info("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, cmd, mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down...")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("HTTP server shutdown error")
	}

	wg.Wait()
	logger.Log.Info("Server stopped")
	return nil
}

// runTunnel serves handler through an ngrok tunnel until ctx is done
func runTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Log.WithField("domain", domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Log.WithFields(logrus.Fields{
		"url":       ngrokURL,
		"api":       ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Info("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Log.WithError(err).Error("ngrok server error")
	}
	logger.Log.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// runMCP runs an MCP stdio server. It reuses an API already listening on
// --host/--port; otherwise it starts an internal HTTP API on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	setupLogging(cmd, os.Stderr)

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
	baseURL, shutdown, err := resolveAPI(ctx, cmd, externalURL)
	if err != nil {
		return err
	}
	defer shutdown()

	mcpClient := mcp.NewClient(baseURL)
	logger.Log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// resolveAPI returns the base URL of a reachable API, starting an internal one
// when externalURL does not answer
func resolveAPI(ctx context.Context, cmd *cli.Command, externalURL string) (string, func(), error) {
	logger.Log.WithField("url", externalURL).Info("Checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 500 {
			logger.Log.Info("External API server found, using it for MCP")
			return externalURL, func() {}, nil
		}
	}

	logger.Log.Info("No external API server found, starting internal HTTP server")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	// Nobody watches the internal server, so no hub
	svc, err := initializeServices(cmd, nil)
	if err != nil {
		listener.Close()
		return "", nil, err
	}

	httpServer := &http.Server{Handler: api.NewServer(svc.game, nil)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Error("internal HTTP server error")
		}
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		svc.progress.Close()
	}

	return fmt.Sprintf("http://%s", listener.Addr().String()), shutdown, nil
}

// runValidate validates the given files, or every level in --levels-dir
func runValidate(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, os.Stderr)

	var results []validate.Result
	if cmd.Args().Len() > 0 {
		for _, path := range cmd.Args().Slice() {
			results = append(results, validate.File(path))
		}
	} else {
		var err error
		results, err = validate.Dir(cmd.String("levels-dir"))
		if err != nil {
			return err
		}
	}

	if !validate.Report(cmd.Root().Writer, results) {
		return errors.New("some levels have errors")
	}
	return nil
}
