// Command placement-grid starts the Placement Grid server.
//
// Commands:
//  1. "serve" (default): runs the HTTP server exposing the REST API, the WebSocket feed and an /mcp HTTP endpoint
//  2. "stdio-mcp": runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate": checks layout files and reports problems
//  4. "inspect": renders the starting board of a layout
//
// Settings come from placement-grid.yaml, PGRID_* environment variables
// (a .env file is loaded first) and flags, in increasing priority.
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
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/placement-grid/api"
	"github.com/wricardo/placement-grid/game/config"
	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/logging"
	"github.com/wricardo/placement-grid/game/render"
	"github.com/wricardo/placement-grid/game/service"
	"github.com/wricardo/placement-grid/game/session"
	"github.com/wricardo/placement-grid/transport/mcp"
	"github.com/wricardo/placement-grid/transport/websocket"
	"github.com/wricardo/placement-grid/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Placement Grid Server"
)

// syncInterval is how often in-memory sessions are checked against storage.
const syncInterval = 5 * time.Second

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", envErr)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "placement-grid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "settings", Usage: "directory searched for " + config.SettingsFileName + ".yaml", Value: "."},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.StringFlag{Name: "config-dir", Usage: "directory containing layout configurations"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "directory for file session storage"},
			&cli.StringFlag{Name: "store", Usage: "session storage: file, sqlite or memory"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database for the sqlite store"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.BoolFlag{Name: "debug", Usage: "shorthand for --log-level debug"},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token (or NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain"},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  runServe,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server, starting an internal HTTP API when none answers",
				Action:  runStdioMCP,
			},
			{
				Name:      "validate",
				Usage:     "check layout files or directories (default: the config directory)",
				ArgsUsage: "[path...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
				},
				Action: runValidate,
			},
			{
				Name:      "inspect",
				Usage:     "render the starting board of a layout file or layout name",
				ArgsUsage: "<layout>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "color", Usage: "colour item cells by rarity"},
				},
				Action: runInspect,
			},
		},
	}
}

// loadSettings reads the settings file and environment, then applies flags
// that were set explicitly.
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(config.NewViper(), cmd.String("settings"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("config-dir") {
		settings.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("sessions-dir") {
		settings.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.IsSet("store") {
		settings.Store = cmd.String("store")
	}
	if cmd.IsSet("db-path") {
		settings.DBPath = cmd.String("db-path")
	}
	if cmd.IsSet("log-level") {
		settings.LogLevel = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		settings.LogLevel = "debug"
	}
	if cmd.Bool("ngrok") {
		settings.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		settings.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if settings.Ngrok.AuthToken == "" {
		settings.Ngrok.AuthToken = firstEnv("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// services bundles what every server mode needs.
type services struct {
	inventory   service.InventoryService
	sessions    *session.Manager
	persistence session.SessionPersistence
	closer      io.Closer
}

func (s *services) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// initializeServices wires the config manager, session storage and the
// inventory service.
func initializeServices(settings *config.Settings, log zerolog.Logger) (*services, error) {
	configManager, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svcs := &services{}
	switch settings.Store {
	case config.StoreFile:
		fp, err := session.NewFilePersistence(settings.SessionsDir, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		fp.SetLogger(log)
		svcs.persistence = fp
	case config.StoreSQLite:
		sp, err := session.NewSQLPersistence(settings.DBPath, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		sp.SetLogger(log)
		svcs.persistence = sp
		svcs.closer = sp
	}

	if svcs.persistence != nil {
		svcs.sessions = session.NewManagerWithPersistence(svcs.persistence, session.WithLogger(log))
		if err := svcs.sessions.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	} else {
		svcs.sessions = session.NewManager(session.WithLogger(log))
	}

	svcs.inventory = service.NewInventoryService(svcs.sessions, configManager, service.WithLogger(log))
	return svcs, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(maxAge)
		}
	}
}

// storageSyncRoutine drops sessions from memory once their stored copy is
// deleted out of band.
func storageSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, log zerolog.Logger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := pruneOrphans(manager, persistence)
			if pruned > 0 {
				log.Info().Int("pruned", pruned).Msg("storage sync pruned orphaned sessions")
			}
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if !persistence.Exists(s.ID) {
			if err := manager.DeleteFromMemory(s.ID); err == nil {
				pruned++
			}
		}
	}
	return pruned
}

// mcpHandler serves single JSON-RPC messages over HTTP POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API at the root and the MCP proxy at /mcp.
func newRouter(apiServer http.Handler, client *mcp.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", mcpHandler(client))
	return mux
}

// runServe starts the HTTP server with REST API, WebSocket hub and /mcp
// endpoint, plus an ngrok tunnel when enabled.
func runServe(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := logging.New(settings.LogLevel, os.Stderr)
	log.Info().Str("version", Version).Str("store", settings.Store).Msg("starting " + AppName)

	svcs, err := initializeServices(settings, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, svcs.sessions, settings.Cleanup.Interval, settings.Cleanup.MaxAge)
	}()
	if svcs.persistence != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storageSyncRoutine(ctx, svcs.sessions, svcs.persistence, log)
		}()
	}

	hub := websocket.NewHub(websocket.WithLogger(log))
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(svcs.inventory, hub, api.WithLogger(log))

	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	router := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("ws", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings.Ngrok, router, log)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	if err := svcs.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx ends.
func runNgrok(ctx context.Context, settings config.NgrokSettings, handler http.Handler, log zerolog.Logger) {
	if settings.AuthToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	url := tun.URL()
	log.Info().
		Str("url", url).
		Str("api", url+"/api").
		Str("mcp", url+"/mcp").
		Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// apiAvailable reports whether a placement grid API answers at baseURL.
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server. It reuses the API at api_url when
// one answers; otherwise it starts an internal API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol
	log := logging.New(settings.LogLevel, os.Stderr)

	baseURL := settings.APIURL
	if apiAvailable(baseURL) {
		log.Info().Str("url", baseURL).Msg("using external API server for MCP")
	} else {
		svcs, err := initializeServices(settings, log)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(websocket.WithLogger(log))
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{Handler: api.NewServer(svcs.inventory, hub, api.WithLogger(log))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("url", baseURL).Msg("started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Msg("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runValidate checks layout files and directories and fails when any is invalid.
func runValidate(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		paths = []string{settings.ConfigDir}
	}

	var results []validate.Result
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			rs, err := validate.Dir(p)
			if err != nil {
				return err
			}
			results = append(results, rs...)
			continue
		}
		results = append(results, validate.File(p))
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(w, results)
	}

	for _, r := range results {
		if !r.Valid {
			return cli.Exit("some layouts have errors", 1)
		}
	}
	return nil
}

func printResults(w io.Writer, results []validate.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), r.File)
		if r.Valid {
			fmt.Fprintln(w, color.Green.Sprint("VALID"))
		} else {
			fmt.Fprintln(w, color.Red.Sprint("INVALID"))
		}
		for _, e := range r.Errors {
			fmt.Fprintln(w, "  "+color.Red.Sprint("error: ")+e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintln(w, "  "+color.Yellow.Sprint("warning: ")+warn)
		}
		for _, info := range r.Info {
			fmt.Fprintln(w, "  "+info)
		}
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(w, "%d layout(s) checked\n", len(results))
}

// runInspect renders the starting board of a layout.
func runInspect(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("inspect needs exactly one layout file or name", 2)
	}
	name := cmd.Args().First()

	cfg, err := loadLayout(cmd, name)
	if err != nil {
		return err
	}
	board, err := engine.NewBoardFromConfig(cfg)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "%s: %s\n\n", cfg.Name, cfg.Description)
	fmt.Fprint(w, render.New(cmd.Bool("color")).Board(board.State()))

	result := validate.Config(filepath.Base(name), cfg)
	for _, warn := range result.Warnings {
		fmt.Fprintln(w, color.Yellow.Sprint("warning: ")+warn)
	}
	return nil
}

// loadLayout treats name as a file when it exists, else as a layout name in
// the config directory.
func loadLayout(cmd *cli.Command, name string) (*engine.LayoutConfig, error) {
	if _, err := os.Stat(name); err == nil {
		return engine.LoadLayoutConfig(name)
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	configs, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, err
	}
	return configs.LoadConfig(name)
}
