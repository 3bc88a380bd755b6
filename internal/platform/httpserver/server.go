package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	tallyengine "github.com/AlmaLinux/astra/contexts/governance/tally-engine"
	tallyerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
	tallyhttp "github.com/AlmaLinux/astra/contexts/governance/tally-engine/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlmaLinux/astra/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	tally  tallyengine.Module
}

func New(tally tallyengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		tally:  tally,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/elections/{election_id}/tally", s.handleRunTally)
	s.mux.HandleFunc("GET /api/elections/{election_id}/results", s.handleTallyResults)
	s.mux.HandleFunc("GET /api/elections/{election_id}/audit", s.handleTallyAudit)
	s.mux.HandleFunc("GET /api/elections/{election_id}/flows", s.handleTallyFlows)
	s.mux.HandleFunc("GET /api/elections/{election_id}/quorum", s.handleQuorumStatus)
}

func (s *Server) handleRunTally(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	if electionID == "" {
		writeTallyError(w, http.StatusBadRequest, "invalid_request", "election_id is required")
		return
	}
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))

	resp, err := s.tally.Handler.RunTallyHandler(r.Context(), electionID, actorID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	if resp.Replayed {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleTallyResults(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	resp, err := s.tally.Handler.ResultsHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTallyAudit(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	resp, err := s.tally.Handler.AuditHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTallyFlows(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	resp, err := s.tally.Handler.FlowsHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuorumStatus(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	resp, err := s.tally.Handler.QuorumHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeTallyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tallyerrors.ErrElectionNotFound):
		writeTallyError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, tallyerrors.ErrTallyNotFound):
		writeTallyError(w, http.StatusNotFound, "tally_not_found", err.Error())
	case errors.Is(err, tallyerrors.ErrElectionNotClosed):
		writeTallyError(w, http.StatusConflict, "election_not_closed", err.Error())
	case errors.Is(err, tallyerrors.ErrAlreadyTallied):
		writeTallyError(w, http.StatusConflict, "already_tallied", err.Error())
	case errors.Is(err, tallyerrors.ErrTallyInProgress):
		writeTallyError(w, http.StatusConflict, "tally_in_progress", err.Error())
	case errors.Is(err, tallyerrors.ErrConflict):
		writeTallyError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, tallyerrors.ErrInvalidTallyInput),
		errors.Is(err, tallyerrors.ErrInvalidBallot),
		errors.Is(err, tallyerrors.ErrInvalidConfiguration):
		writeTallyError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, tallyerrors.ErrTallyInvariant):
		writeTallyError(w, http.StatusInternalServerError, "tally_invariant_violation", err.Error())
	default:
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
