package server

import (
	"encoding/json"
	"net/http"

	"github.com/apetros/valuecycle/internal/domain"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "valuecycle",
		"mode":    s.mode,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleStatus returns the full snapshot of the last trading cycle
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handlePortfolio returns the reconciled portfolio state
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot().Portfolio)
}

// handleSignals returns the signals generated in the last cycle
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap.Signals == nil {
		s.writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Signals)
}

// handleScores returns the latest value scores per symbol
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap.ValueScores == nil {
		s.writeJSON(w, http.StatusOK, map[string]float64{})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.ValueScores)
}

// handleAllocations returns the latest sector allocation targets
func (s *Server) handleAllocations(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap.Allocations == nil {
		s.writeJSON(w, http.StatusOK, map[string]float64{})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Allocations)
}

// handleBlocked returns the symbols currently under a wash sale block
func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	blocked := snap.BlockedSymbols
	if blocked == nil {
		blocked = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocked_symbols": blocked,
	})
}

// handleTrades returns the simulated trade ledger. In REAL mode there
// is no ledger and the broker is the source of truth.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeJSON(w, http.StatusOK, []domain.TradeRecord{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.ledger.All())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
