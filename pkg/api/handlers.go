package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/otherjamesbrown/chatpulse/pkg/engagement"
	cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
	"github.com/otherjamesbrown/chatpulse/pkg/observability"
	"github.com/otherjamesbrown/chatpulse/pkg/pipeline"
	"github.com/otherjamesbrown/chatpulse/pkg/report"
	"github.com/otherjamesbrown/chatpulse/pkg/source"
)

// codeInvalidRequest is returned for malformed JSON bodies.
const codeInvalidRequest = "invalid_request"

// uploadName labels request bodies in errors and logs.
const uploadName = "request"

type analyzeRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	Retryable       bool   `json:"retryable"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.ResultSchema())
}

// analyze scores a transcript sent as text/plain, application/pdf, or JSON
// {"text": "..."}. Query parameters: stats=true adds parse statistics.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("more than %d bytes: %w", s.maxBytes, cperrors.ErrContentTooLarge)
		}
		s.writeError(w, r, cperrors.ClassifyError(err, uploadName))
		return
	}

	in := pipeline.Input{
		Name:    uploadName,
		Origin:  observability.OriginAPI,
		Publish: s.publish,
	}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err = mime.ParseMediaType(ct)
		if err != nil {
			s.writeInvalidRequest(w, fmt.Sprintf("invalid Content-Type: %v", err))
			return
		}
	}

	switch mediaType {
	case "application/json":
		var req analyzeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeInvalidRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
		in.Data = []byte(req.Text)
		in.Format = source.FormatText
	case "application/pdf":
		in.Data = body
		in.Format = source.FormatPDF
	case "", "text/plain", "application/octet-stream":
		in.Data = body
	default:
		err := fmt.Errorf("content type %q: %w", mediaType, cperrors.ErrUnsupportedFormat)
		s.writeError(w, r, cperrors.ClassifyError(err, uploadName))
		return
	}

	run, err := s.runner.Run(ctx, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var stats *engagement.Stats
	if withStats, _ := strconv.ParseBool(r.URL.Query().Get("stats")); withStats {
		stats = &run.Stats
	}

	logger.Debug("Transcript analyzed",
		logging.F("run_id", run.ID),
		logging.F("percentage", run.Result.Percentage))
	writeJSON(w, http.StatusOK, report.New(run.ID, run.Result, stats))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := cperrors.CodeOf(err)
	status := cperrors.HTTPStatus(code)

	message := err.Error()
	var se *cperrors.SourceError
	if errors.As(err, &se) {
		message = se.Message
	}

	logger := s.logger.WithContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Analysis request failed", logging.Err(err), logging.F("code", string(code)))
	} else {
		logger.Debug("Analysis request rejected", logging.Err(err), logging.F("code", string(code)))
	}

	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:            string(code),
		Message:         message,
		Retryable:       cperrors.IsRetryable(code),
		SuggestedAction: cperrors.GetSuggestedAction(code),
	}})
}

func (s *Server) writeInvalidRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    codeInvalidRequest,
		Message: message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
