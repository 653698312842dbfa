package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/astoko/ParcelBuddy/config"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier/trackql"
	"github.com/astoko/ParcelBuddy/internal/models"
	"github.com/astoko/ParcelBuddy/internal/services/syncer"
)

type httpOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	engine    *syncer.Engine
	creds     *config.CredentialsHolder
	credsPath string
	resolver  *carrier.Resolver
	cfg       *config.Config
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newRouter(opts httpOpts) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, opts.engine.Stats())
	})

	r.Get("/countdown", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"countdownSeconds": opts.engine.Countdown()})
	})

	r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		opts.engine.RefreshAll()
		writeJSON(w, http.StatusOK, map[string]bool{"triggered": true})
	})

	r.Get("/parcels", func(w http.ResponseWriter, r *http.Request) {
		history, err := opts.engine.History(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if history == nil {
			history = []models.ParcelRecord{}
		}
		writeJSON(w, http.StatusOK, history)
	})

	r.Post("/parcels", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name"`
			Number  string `json:"number"`
			Courier string `json:"courier"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := opts.engine.StartTracking(context.WithoutCancel(r.Context()), req.Name, req.Number, req.Courier, true); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
	})

	r.Delete("/parcels", func(w http.ResponseWriter, r *http.Request) {
		if err := opts.engine.ClearHistory(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
	})

	r.Delete("/parcels/{number}", func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "number")
		if err := opts.engine.RemoveParcel(r.Context(), number); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	})

	r.Get("/carriers", func(w http.ResponseWriter, r *http.Request) {
		carriers, err := opts.resolver.Carriers(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, carriers)
	})

	r.Post("/credentials", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClientID     string `json:"clientId"`
			ClientSecret string `json:"clientSecret"`
			GraphQLURL   string `json:"graphqlUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		creds := config.Credentials{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			GraphQLURL:   req.GraphQLURL,
		}
		if err := config.SaveCredentials(opts.credsPath, creds); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.creds.Set(creds)
		// Новый endpoint может отдавать другой каталог перевозчиков.
		opts.resolver.Invalidate(r.Context())
		opts.engine.RefreshAll()
		writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
	})

	r.Post("/credentials/test", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClientID     string `json:"clientId"`
			ClientSecret string `json:"clientSecret"`
			GraphQLURL   string `json:"graphqlUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		client := trackql.NewStatic(config.Credentials{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			GraphQLURL:   req.GraphQLURL,
		})
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		carriers, err := client.ListCarriers(ctx)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "carriers": len(carriers)})
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		// Без секретов: только операционные настройки.
		writeJSON(w, http.StatusOK, map[string]any{
			"historyBackend":           opts.cfg.History.Backend,
			"refreshIntervalSeconds":   opts.cfg.ParcelSync.RefreshIntervalSeconds,
			"fetchTimeoutSeconds":      opts.cfg.ParcelSync.FetchTimeoutSeconds,
			"fetchConcurrency":         opts.cfg.ParcelSync.FetchConcurrency,
			"cacheDirectoryTTLSeconds": opts.cfg.ParcelSync.CacheDirectoryTTLSeconds,
			"notifyMode":               opts.cfg.ParcelSync.NotifyMode,
			"credentialsConfigured":    opts.creds.Get().Valid(),
		})
	})

	return r
}

func runHTTPServer(ctx context.Context, opts httpOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newRouter(opts)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
