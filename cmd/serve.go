package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanza-labs/refdata-cli/internal/refdata"
)

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the current reference data over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := initManager(ctx, refdata.WithAutoRefresh())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /genres", func(w http.ResponseWriter, r *http.Request) {
			genres, err := m.Genres()
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, genres)
		})

		mux.HandleFunc("GET /metatags", func(w http.ResponseWriter, r *http.Request) {
			tags, err := m.MetaTags()
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tags)
		})

		mux.HandleFunc("GET /techniques", func(w http.ResponseWriter, r *http.Request) {
			techniques, err := m.Techniques()
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, techniques)
		})

		mux.HandleFunc("GET /sources", func(w http.ResponseWriter, r *http.Request) {
			scope := r.URL.Query().Get("scope")
			if scope == "" {
				scope = "all"
			}
			urls, err := m.SourceURLs(scope)
			if err != nil {
				http.Error(w, `{"error":"unknown scope"}`, http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, urls)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			return nil
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		}
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
