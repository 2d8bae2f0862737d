package verify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"verification-system/internal/common/logger"
	"verification-system/internal/domain"
)

func newMux(svc ServiceInterface, lg *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req domain.SubmitReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		resp, err := svc.SubmitReport(r.Context(), req)
		switch {
		case errors.Is(err, domain.ErrUnknownAgent):
			writeError(w, http.StatusForbidden, err.Error())
			return
		case errors.Is(err, domain.ErrMalformedOrder):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			lg.Error("submit_report_failed", err, map[string]any{"call_id": req.CallID})
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		status := http.StatusAccepted
		if resp.Status == "verified" {
			status = http.StatusOK
		}
		writeJSON(w, status, resp)
	})

	mux.HandleFunc("/verifications/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		callID := strings.TrimPrefix(r.URL.Path, "/verifications/")
		if callID == "" {
			writeError(w, http.StatusBadRequest, "call id is required")
			return
		}
		res, err := svc.Result(r.Context(), callID)
		if errors.Is(err, ErrResultNotFound) {
			writeError(w, http.StatusNotFound, "no verification result for call")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, svc.Stats())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
