package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/charts"
	"github.com/KaramelBytes/datalens-cli/internal/chat"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type statusResponse struct {
	APIConfigured bool    `json:"api_configured"`
	DatasetLoaded bool    `json:"dataset_loaded"`
	Filename      *string `json:"filename"`
}

type uploadSummary struct {
	Rows        int                              `json:"rows"`
	Columns     int                              `json:"columns"`
	EmptyValues int                              `json:"empty_values"`
	ColumnTypes map[string]string                `json:"column_types"`
	EmptyData   map[string]analysis.EmptyStat    `json:"empty_data"`
	BasicStats  map[string]analysis.NumericStats `json:"basic_stats"`
}

type uploadResponse struct {
	Success  bool             `json:"success"`
	Filename string           `json:"filename"`
	Summary  uploadSummary    `json:"summary"`
	Preview  analysis.Preview `json:"preview"`
	Charts   []charts.Chart   `json:"charts"`
}

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	ws.mu.Lock()
	resp := statusResponse{
		APIConfigured: s.opts.Completer != nil,
		DatasetLoaded: ws.Summarizer != nil,
	}
	if ws.Filename != "" {
		name := ws.Filename
		resp.Filename = &name
	}
	ws.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size is %dMB", s.opts.MaxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		// A part with an empty filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.ReplaceAll(hdr.Filename, "\\", "/"))
	if hdr.Filename == "" || filename == "." || filename == "/" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !dataset.Supported(filename) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s. Supported: CSV, Excel, JSON", ext))
		return
	}

	ds, err := loadUpload(file, filename, ext)
	if err != nil {
		var de *dataset.DatasetError
		if errors.As(err, &de) {
			writeError(w, http.StatusBadRequest, de.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process file: %v", err))
		return
	}

	sum := analysis.NewSummarizer(ds)
	summary := sum.Summary()
	var session *chat.Session
	var completer charts.Completer
	if s.opts.Completer != nil {
		session = chat.NewSession(s.opts.Completer, sum.SummaryText(), s.logger)
		completer = s.opts.Completer
	}
	rendered, _ := charts.NewAdvisor(ds, sum, completer, s.logger).Generate(r.Context())

	ws.mu.Lock()
	ws.Filename = filename
	ws.Dataset = ds
	ws.Summarizer = sum
	ws.Chat = session
	ws.mu.Unlock()

	s.logger.Info("dataset loaded", "file", filename, "rows", ds.Rows(), "columns", ds.Width(), "charts", len(rendered))
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Filename: filename,
		Summary: uploadSummary{
			Rows:        summary.RowCount,
			Columns:     summary.ColumnCount,
			EmptyValues: summary.TotalEmpty(),
			ColumnTypes: summary.ColumnTypes,
			EmptyData:   summary.EmptyData,
			BasicStats:  summary.BasicStats,
		},
		Preview: analysis.NewPreview(ds, previewRows),
		Charts:  rendered,
	})
}

// loadUpload spools the upload to a temp file, always removed, and loads it.
func loadUpload(src io.Reader, filename, ext string) (*dataset.Dataset, error) {
	tmp, err := os.CreateTemp("", "datalens-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	return dataset.LoadReader(tmp, filename, dataset.Options{})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	ws.mu.Lock()
	session := ws.Chat
	ws.mu.Unlock()
	if session == nil {
		writeError(w, http.StatusBadRequest, "Please upload a dataset first")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}
	answer, err := session.Ask(r.Context(), *req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "No message provided")
			return
		}
		s.logger.Warn("chat failed", "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("AI error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Response: answer})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	ws.mu.Lock()
	ws.reset()
	ws.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
