package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flattened station feed over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(newCityBikes()),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the read-only JSON API over the directory client.
func newRouter(c citybikes.Client) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeHTTPJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/networks", func(w http.ResponseWriter, req *http.Request) {
		networks, err := c.Networks(req.Context())
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		if city := req.URL.Query().Get("city"); city != "" {
			networks = filterNetworks(networks, city)
		}
		writeHTTPJSON(w, http.StatusOK, networks)
	})

	r.Get("/api/networks/{id}/stations", func(w http.ResponseWriter, req *http.Request) {
		records, err := citybikes.FetchStations(req.Context(), c, chi.URLParam(req, "id"))
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		writeHTTPJSON(w, http.StatusOK, records)
	})

	r.Get("/api/stations", func(w http.ResponseWriter, req *http.Request) {
		city := req.URL.Query().Get("city")
		if city == "" {
			writeHTTPJSON(w, http.StatusBadRequest, map[string]string{"error": "city query parameter is required"})
			return
		}

		id, err := citybikes.FindNetworkID(req.Context(), c, city)
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		records, err := citybikes.FetchStations(req.Context(), c, id)
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		writeHTTPJSON(w, http.StatusOK, records)
	})

	return r
}

func writeHTTPJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeHTTPError maps lookup and upstream-data failures to status codes.
func writeHTTPError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, citybikes.ErrNotFound) {
		status = http.StatusNotFound
	}
	zap.L().Error("request failed", zap.Error(err))
	writeHTTPJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
