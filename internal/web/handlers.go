package web

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"exceltojira/internal/core"
	"exceltojira/internal/logging"
)

// handleUpload accepts a multipart spreadsheet upload, validates it,
// and returns a preview the client can confirm before any ticket is
// created.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
		writeError(w, http.StatusBadRequest, "unsupported file type, please upload a .csv file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	columns, rows, err := core.ParseSpreadsheet(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := s.service.ProcessUpload(r.Context(), columns, rows, header.Size)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload processed",
		"filename", header.Filename,
		"preview_id", outcome.PreviewID,
		"rows", outcome.TotalRows,
	)
	writeJSON(w, http.StatusOK, outcome)
}

// createTicketsRequest is the body for POST /api/create-tickets.
type createTicketsRequest struct {
	PreviewID string `json:"preview_id"`
}

// handleCreateTickets starts asynchronous ticket creation for a stored
// preview and returns the operation id for polling.
func (s *Server) handleCreateTickets(w http.ResponseWriter, r *http.Request) {
	var req createTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.PreviewID) == "" {
		writeError(w, http.StatusBadRequest, "preview_id is required")
		return
	}

	outcome, err := s.service.SubmitBatch(r.Context(), req.PreviewID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"operation_id":  outcome.OperationID,
		"total_tickets": outcome.TotalTickets,
		"status":        core.StatusProcessing,
	})
}

// handleStatus returns the current snapshot of a creation operation.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "operationID")

	snapshot, err := s.service.PollStatus(operationID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleGetTicket fetches one ticket from Jira by key.
func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "ticketKey")

	ticket, err := s.service.LookupTicket(r.Context(), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// searchRequest is the body for POST /api/search.
type searchRequest struct {
	JQL        string `json:"jql"`
	MaxResults int    `json:"max_results"`
}

// handleSearch runs a JQL search against Jira.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.service.SearchTickets(r.Context(), req.JQL, req.MaxResults)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHealth reports liveness. It never touches Jira.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "bulk-ticket-service",
	})
}

// handleConfigValidate checks the Jira configuration and credentials by
// calling the remote /myself endpoint. Always responds 200; the body
// says whether the configuration is usable.
func (s *Server) handleConfigValidate(w http.ResponseWriter, r *http.Request) {
	identity, err := s.service.TestConnection(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  identity,
	})
}

// handleCleanup triggers an immediate retention sweep.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	previews, operations := s.service.Sweep()
	writeJSON(w, http.StatusOK, map[string]any{
		"previews_removed":   previews,
		"operations_removed": operations,
	})
}
