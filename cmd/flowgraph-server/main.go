// Command flowgraph-server hosts the C7 duplex session protocol (spec §6)
// over a websocket upgrade, alongside the discovery, health, and metrics
// endpoints a deployment needs around it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model/hosted"
	searchclient "github.com/dshills/flowgraph-engine/graph/search"
	"github.com/dshills/flowgraph-engine/internal/obslog"
	"github.com/dshills/flowgraph-engine/session"
)

// config is the process's environment-derived configuration, loaded the
// way the teacher's examples load theirs: a flat set of env vars, with an
// optional .env file layered underneath via godotenv.
type config struct {
	addr           string
	gatewayBaseURL string
	searchEndpoint string
	searchAPIKey   string
	concurrency    int64
	logLevel       string
	costCurrency   string
}

func loadConfig() config {
	_ = godotenv.Load() // optional: absence of a .env file is not an error

	c := config{
		addr:           envOr("FLOWGRAPH_ADDR", ":8080"),
		gatewayBaseURL: envOr("FLOWGRAPH_GATEWAY_BASE_URL", "https://openrouter.ai/api/v1"),
		searchEndpoint: os.Getenv("FLOWGRAPH_SEARCH_ENDPOINT"),
		searchAPIKey:   os.Getenv("FLOWGRAPH_SEARCH_API_KEY"),
		concurrency:    5,
		logLevel:       envOr("FLOWGRAPH_LOG_LEVEL", "info"),
		costCurrency:   envOr("FLOWGRAPH_COST_CURRENCY", "usd"),
	}
	if n, err := strconv.ParseInt(os.Getenv("FLOWGRAPH_CONCURRENCY"), 10, 64); err == nil && n > 0 {
		c.concurrency = n
	}
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	os.Exit(run())
}

// run builds the server and blocks until a terminating signal or a fatal
// startup failure, returning the process exit code spec §6 defines: 0 on
// clean shutdown, 1 on startup failure, 2 on fatal runtime panic.
func run() int {
	defer func() {
		if r := recover(); r != nil {
			obslog.Error("fatal panic", "recover", fmt.Sprint(r))
			os.Exit(2)
		}
	}()

	cfg := loadConfig()
	obslog.SetLevel(cfg.logLevel)

	registry := prometheus.NewRegistry()
	metrics := graph.NewPrometheusMetrics(registry)

	ctrlOpts := []session.Option{
		session.WithConcurrency(cfg.concurrency),
		session.WithMetrics(metrics),
		session.WithCostTracking(cfg.costCurrency),
	}
	if cfg.searchEndpoint != "" {
		ctrlOpts = append(ctrlOpts, session.WithSearchClient(searchclient.NewClient(cfg.searchEndpoint, cfg.searchAPIKey)))
	}
	ctrl := session.New(cfg.gatewayBaseURL, ctrlOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/models", modelsHandler(cfg.gatewayBaseURL))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/session", sessionHandler(ctrl))

	srv := &http.Server{Addr: cfg.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		obslog.Info("flowgraph-server listening", "addr", cfg.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		obslog.Error("startup failure", "error", err.Error())
		return 1
	case <-sigCh:
		obslog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obslog.Error("graceful shutdown failed", "error", err.Error())
		return 1
	}
	return 0
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// modelsHandler proxies GET /models?api_key=... to the configured hosted
// gateway's own discovery endpoint (spec §6): the core never interprets
// pricing, it just relays the catalogue through.
func modelsHandler(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.URL.Query().Get("api_key")
		if apiKey == "" {
			http.Error(w, `{"error":"api_key is required"}`, http.StatusBadRequest)
			return
		}
		client := hosted.NewChatModel(apiKey, baseURL)
		models, err := client.Catalogue(r.Context())
		if err != nil {
			obslog.Warn("models catalogue lookup failed", "error", err.Error())
			http.Error(w, `{"error":"catalogue unavailable"}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Data []hosted.ModelInfo `json:"data"`
		}{Data: models})
	}
}

// sessionHandler upgrades to a websocket and hands the connection off to
// the session controller for the lifetime of one duplex exchange (§6).
func sessionHandler(ctrl *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			obslog.Warn("websocket upgrade failed", "error", err.Error())
			return
		}
		defer func() { _ = conn.CloseNow() }()

		if err := ctrl.Serve(r.Context(), conn); err != nil {
			obslog.Warn("session ended with error", "error", err.Error())
			return
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}
