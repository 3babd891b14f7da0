// Command crucible-server starts the constrained path solver server.
//
// It supports two modes:
//  1. "server" (default) - runs the HTTP server exposing the REST API, the WebSocket event stream and an /mcp HTTP endpoint
//  2. "stdio-mcp" - runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, puzzle and run directories, debug logging,
// version output, OTLP trace export and optional ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/crucible/api"
	"github.com/wricardo/crucible/internal/tracing"
	"github.com/wricardo/crucible/search/puzzle"
	"github.com/wricardo/crucible/search/runs"
	"github.com/wricardo/crucible/search/service"
	"github.com/wricardo/crucible/transport/mcp"
	"github.com/wricardo/crucible/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Crucible Path Solver Server"
)

const (
	runRetention     = 24 * time.Hour
	cleanupInterval  = time.Hour
	syncInterval     = 5 * time.Second
	defaultSolveTime = 30 * time.Second
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	puzzleDir    = flag.String("puzzle-dir", "", "Directory containing puzzles (or PUZZLE_DIR env var, default \"puzzles\")")
	runsDir      = flag.String("runs-dir", "", "Directory for recorded runs (or RUNS_DIR env var, default \"runs\")")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	otlpEndpoint = flag.String("otlp-endpoint", "", "OTLP/HTTP collector host:port for traces (or OTEL_EXPORTER_OTLP_ENDPOINT env var)")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// firstNonEmpty returns the first non-empty value
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolvePuzzleDir() string {
	return firstNonEmpty(*puzzleDir, os.Getenv("PUZZLE_DIR"), "puzzles")
}

func resolveRunsDir() string {
	return firstNonEmpty(*runsDir, os.Getenv("RUNS_DIR"), "runs")
}

// resolveOTLPEndpoint accepts either host:port or a URL as the standard
// environment variable usually carries one
func resolveOTLPEndpoint() string {
	endpoint := firstNonEmpty(*otlpEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimSuffix(endpoint, "/")
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                              # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -puzzle-dir ./p   # Custom port and puzzle directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -otlp-endpoint 127.0.0.1:4318  # Export traces to a local collector\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                    # Run MCP stdio server\n", os.Args[0])
	}
}

// newLogger builds the process logger. Both configurations write to stderr,
// which keeps stdout free for the stdio MCP transport.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr == nil {
		logger.Info("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		logger.Warn("Error loading .env file", zap.Error(envErr))
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logger.Info("Starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tcfg := tracing.DefaultConfig("crucible", Version)
	tcfg.OTLPEndpoint = resolveOTLPEndpoint()
	shutdownTracing, err := tracing.Setup(ctx, tcfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}
	defer tracing.Shutdown(shutdownTracing, logger)

	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run(ctx)

	svcs, err := initializeServices(ctx, hub, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer svcs.close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(svcs.solve, hub, logger)

	case "server", "http":
		runHTTPServer(ctx, svcs.solve, hub, logger)

	default:
		logger.Fatal("Unknown mode. Use 'server' (default) or 'stdio-mcp'", zap.String("mode", mode))
	}
}

// newMCPHandler serves single JSON-RPC messages posted to /mcp
func newMCPHandler(mcpClient *mcp.Client) http.HandlerFunc {
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

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// newRouter combines the REST API, the WebSocket stream and the /mcp endpoint
func newRouter(solveService service.SolveService, hub *websocket.Hub, baseURL string, logger *zap.Logger) http.Handler {
	apiServer := api.NewServer(solveService, hub, logger.Named("api"))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient))
	return mainRouter
}

// runHTTPServer starts the HTTP server and, when enabled, an ngrok tunnel
// serving the same handler.
func runHTTPServer(ctx context.Context, solveService service.SolveService, hub *websocket.Hub, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	mainRouter := newRouter(solveService, hub, "http://"+addr, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: defaultSolveTime + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("rest_api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?channel=all", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
		ngrokShouldRun = true
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter, logger.Named("ngrok"))
		}()
	}

	sig := <-stop
	logger.Info("Shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, handler http.Handler, logger *zap.Logger) {
	authToken := firstNonEmpty(*ngrokAuth, os.Getenv("NGROK_AUTHTOKEN"), os.Getenv("NGROK_AUTH_TOKEN"))
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain := firstNonEmpty(*ngrokDomain, os.Getenv("NGROK_DOMAIN")); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("Using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", zap.Error(err))
		return
	}

	// Closing the tunnel unblocks http.Serve
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("Ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("rest_api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("Ngrok server error", zap.Error(err))
	}
	logger.Info("Ngrok tunnel closed")
}

// services bundles what initializeServices wires together
type services struct {
	solve   service.SolveService
	runs    *runs.Manager
	puzzles *puzzle.Manager
	logger  *zap.Logger
}

// close flushes the run history to disk
func (s *services) close() {
	if err := s.runs.SaveAllRuns(); err != nil {
		s.logger.Warn("Failed to save runs on shutdown", zap.Error(err))
	}
}

// initializeServices wires the puzzle catalogue, run history and solve
// service, and starts the background maintenance routines.
func initializeServices(ctx context.Context, notifier service.Notifier, logger *zap.Logger) (*services, error) {
	puzzleManager, err := puzzle.NewManager(resolvePuzzleDir(), logger.Named("puzzles"))
	if err != nil {
		return nil, fmt.Errorf("failed to create puzzle manager: %w", err)
	}

	persistence, err := runs.NewFilePersistence(resolveRunsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create run persistence: %w", err)
	}

	runManager := runs.NewManager(runs.WithPersistence(persistence), runs.WithLogger(logger.Named("runs")))
	if err := runManager.LoadPersistedRuns(); err != nil {
		logger.Warn("Failed to load persisted runs", zap.Error(err))
	}

	opts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithDefaultTimeout(defaultSolveTime),
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	solveService := service.NewSolveService(runManager, puzzleManager, opts...)

	go runCleanupRoutine(ctx, runManager, logger)
	go filesystemSyncRoutine(ctx, runManager, puzzleManager, logger)

	return &services{
		solve:   solveService,
		runs:    runManager,
		puzzles: puzzleManager,
		logger:  logger,
	}, nil
}

// runCleanupRoutine periodically evicts runs not accessed within the
// retention window from memory
func runCleanupRoutine(ctx context.Context, manager *runs.Manager, logger *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredRuns(runRetention); removed > 0 {
				logger.Info("Cleaned up expired runs", zap.Int("count", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops runs whose files were deleted and reloads the
// puzzle cache so edited puzzle files are picked up
func filesystemSyncRoutine(ctx context.Context, manager *runs.Manager, puzzles *puzzle.Manager, logger *zap.Logger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.PruneOrphaned(); pruned > 0 {
				logger.Info("Filesystem sync pruned orphaned runs", zap.Int("count", pruned))
			}
			puzzles.RefreshCache()
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API at http://localhost:<port> when one answers; otherwise it
// starts an internal HTTP API on a random loopback port and targets that.
func runStdioMCPWithInternalServer(solveService service.SolveService, hub *websocket.Hub, logger *zap.Logger) {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	testClient := &http.Client{Timeout: 2 * time.Second}
	healthy := false
	if resp, err := testClient.Get(externalURL + "/api/health"); err == nil {
		healthy = resp.StatusCode < 500
		resp.Body.Close()
	}
	if healthy {
		logger.Info("External API server found, using it for MCP", zap.String("url", externalURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal("Failed to get available port", zap.Error(err))
		}

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		logger.Info("Starting internal HTTP server for MCP stdio", zap.String("url", baseURL))

		httpServer := &http.Server{
			Handler: api.NewServer(solveService, hub, logger.Named("api")),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("Internal HTTP server error", zap.Error(err))
			}
		}()
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Fatal("MCP stdio server error", zap.Error(err))
	}
}
