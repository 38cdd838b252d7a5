// Command server exposes a read-only chi HTTP API over the classifier's
// watched token contracts (analysis results are not served), grounded on the teacher's
// cmd/explorer read-only ledger API shape (gorilla/mux there, chi here per
// SPEC_FULL.md's domain stack).
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tokenwatch/internal/config"
	"tokenwatch/internal/logging"
	"tokenwatch/internal/model"
	"tokenwatch/internal/store"
)

// Service wraps the store reads the status API exposes.
type Service struct {
	store *store.Store
}

func (s *Service) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.store.Tokens()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, tokens)
}

func (s *Service) handleToken(w http.ResponseWriter, r *http.Request) {
	addr := model.NormalizeAddress(chi.URLParam(r, "address"))
	tc, ok, err := s.store.Token(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, tc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func routes(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/api/tokens", svc.handleTokens)
	r.Get("/api/tokens/{address}", svc.handleToken)
	return r
}

func main() {
	_ = godotenv.Load(".env")
	viper.AutomaticEnv()

	cfg, err := config.Load(os.Getenv("CLASSIFIER_CONFIG"))
	if err != nil {
		logging.New(false).WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Debug)

	s, err := store.Open(cfg.Storage.DBPath, log.WithField("component", "server"))
	if err != nil {
		log.WithError(err).Fatal("open store")
	}

	addr := os.Getenv("CLASSIFIER_API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8090"
	}
	log.Printf("status API listening on %s", addr)
	if err := http.ListenAndServe(addr, routes(&Service{store: s})); err != nil {
		log.WithError(err).Fatal("serve")
	}
}
