package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"docqa/internal/adapter/extract"
	"docqa/internal/domain"
)

const (
	msgNoFile          = "No PDF file provided"
	msgNoFileSelected  = "No file selected"
	msgNoText          = "Could not extract text from PDF"
	msgEmbedFailed     = "Failed to generate embeddings"
	msgProcessFailed   = "Failed to process PDF"
	msgUploadOK        = "PDF processed successfully"
	msgMissingFields   = "Missing fileId or question"
	msgFileNotFound    = "File not found"
	msgNoRelevant      = "Could not find relevant information"
	msgGenerateFailed  = "Failed to generate answer"
	msgQuestionFailed  = "Failed to process question"
	multipartMemoryCap = 8 << 20
)

type uploadResponse struct {
	FileID      string `json:"fileId"`
	Message     string `json:"message"`
	ChunksCount int    `json:"chunks_count"`
}

type askRequest struct {
	FileID   string `json:"fileId"`
	Question string `json:"question"`
}

type healthResponse struct {
	Status         string `json:"status"`
	FilesProcessed int    `json:"files_processed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, msgProcessFailed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryCap); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgProcessFailed)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		// A file input submitted without a selection arrives as a plain value.
		if _, ok := r.MultipartForm.Value["pdf"]; ok {
			writeError(w, http.StatusBadRequest, msgNoFileSelected)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, msgNoFileSelected)
		return
	}

	extractor := extract.ByExtension(header.Filename, s.opts.MaxUploadBytes)
	info, err := s.svc.IngestReader(r.Context(), header.Filename, file, extractor)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyDocument):
			writeError(w, http.StatusBadRequest, msgNoText)
		case errors.Is(err, domain.ErrEmbedding):
			writeError(w, http.StatusInternalServerError, msgEmbedFailed)
		default:
			s.log.Error("upload failed", "name", header.Filename, "kind", domain.Classify(err).String(), "error", err)
			writeError(w, http.StatusInternalServerError, msgProcessFailed)
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		FileID:      info.ID,
		Message:     msgUploadOK,
		ChunksCount: info.FragmentCount,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	if req.FileID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.FileID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, msgFileNotFound)
		case errors.Is(err, domain.ErrMissingField):
			writeError(w, http.StatusBadRequest, msgMissingFields)
		case errors.Is(err, domain.ErrGeneration):
			writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		case errors.Is(err, domain.ErrEmbedding),
			errors.Is(err, domain.ErrModelMismatch),
			domain.Classify(err) == domain.KindInvariant:
			s.log.Error("retrieval failed", "doc_id", req.FileID, "error", err)
			writeError(w, http.StatusInternalServerError, msgNoRelevant)
		default:
			s.log.Error("question failed", "doc_id", req.FileID, "error", err)
			writeError(w, http.StatusInternalServerError, msgQuestionFailed)
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		FilesProcessed: s.svc.DocumentCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
