// Package httpapi exposes the dashboard's HTTP surface: document ingestion,
// portfolio browsing, cluster analysis, and trend report generation.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/patent-insight/internal/analysis"
	"github.com/joelkehle/patent-insight/internal/ingest"
	"github.com/joelkehle/patent-insight/internal/portfolio"
	"github.com/joelkehle/patent-insight/internal/trendreport"
)

const maxUploadBytes = 64 << 20

// BatchIngester runs a batch of uploaded files through the pipeline.
type BatchIngester interface {
	Run(ctx context.Context, files []ingest.File, progress ingest.ProgressFn) ingest.BatchReport
}

// PortfolioAnalyzer clusters and projects the full record set.
type PortfolioAnalyzer interface {
	Analyze(records []portfolio.PatentRecord) (analysis.Result, error)
}

// ReportGenerator synthesizes a trend report over a record selection.
type ReportGenerator interface {
	Generate(ctx context.Context, selection []portfolio.PatentRecord) (string, error)
}

// PDFRenderer turns a Markdown report into printable PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, report string) ([]byte, error)
}

type Server struct {
	store    *portfolio.Store
	pipeline BatchIngester
	analyzer PortfolioAnalyzer
	reporter ReportGenerator
	pdf      PDFRenderer

	// credentialVerified mirrors whether the external-service credentials
	// were configured at startup; ingestion and reporting refuse to run
	// without them.
	credentialVerified bool
}

func NewServer(store *portfolio.Store, pipeline BatchIngester, analyzer PortfolioAnalyzer, reporter ReportGenerator, pdf PDFRenderer, credentialVerified bool) http.Handler {
	s := &Server{
		store:              store,
		pipeline:           pipeline,
		analyzer:           analyzer,
		reporter:           reporter,
		pdf:                pdf,
		credentialVerified: credentialVerified,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/session", s.handleSession)
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	mux.HandleFunc("/v1/patents", s.handlePatents)
	mux.HandleFunc("/v1/patents/", s.handlePatentByID)
	mux.HandleFunc("/v1/analysis", s.handleAnalysis)
	mux.HandleFunc("/v1/reports", s.handleReports)
	mux.HandleFunc("/v1/reports/pdf", s.handleReportPDF)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"credential_verified": s.credentialVerified,
		"records":             s.store.Len(),
		"categories":          s.store.Categories(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if !s.credentialVerified {
		writeError(w, 503, "external service credentials are not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, 400, "invalid multipart form")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, 400, "at least one file is required")
		return
	}

	var files []ingest.File
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			writeError(w, 400, "unreadable upload: "+header.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, 400, "unreadable upload: "+header.Filename)
			return
		}
		files = append(files, ingest.File{Name: header.Filename, Data: data})
	}

	progress := func(idx, total int, stage ingest.Stage, message string) {
		log.Printf("ingest %d/%d [%s] %s", idx+1, total, stage, message)
	}
	report := s.pipeline.Run(r.Context(), files, progress)
	writeJSON(w, 200, report)
}

// recordView is the listing shape: every summary field, but not the raw vector.
type recordView struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	Problem      string    `json:"problem"`
	Solution     string    `json:"solution"`
	Effect       string    `json:"effect"`
	Category     string    `json:"category"`
	TextExcerpt  string    `json:"text_excerpt"`
	EmbeddingDim int       `json:"embedding_dim"`
	Degraded     bool      `json:"degraded"`
	ProcessedAt  time.Time `json:"processed_at"`
}

func viewOf(r portfolio.PatentRecord) recordView {
	return recordView{
		ID:           r.ID,
		Filename:     r.Filename,
		Title:        r.Title,
		Problem:      r.Problem,
		Solution:     r.Solution,
		Effect:       r.Effect,
		Category:     r.Category,
		TextExcerpt:  r.TextExcerpt,
		EmbeddingDim: len(r.Embedding),
		Degraded:     r.Degraded,
		ProcessedAt:  r.ProcessedAt,
	}
}

func (s *Server) handlePatents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := s.store.Snapshot()
		views := make([]recordView, len(records))
		for i, rec := range records {
			views[i] = viewOf(rec)
		}
		writeJSON(w, 200, map[string]any{"patents": views, "count": len(views)})
	case http.MethodDelete:
		s.store.Clear()
		writeJSON(w, 200, map[string]any{"ok": true, "records": 0})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePatentByID(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/patents/"), "/")
	if id == "" {
		writeError(w, 400, "patent id is required")
		return
	}
	rec, ok := s.store.Get(id)
	if !ok {
		writeError(w, 404, "patent not found")
		return
	}
	writeJSON(w, 200, rec)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	records := s.store.Snapshot()
	result, err := s.analyzer.Analyze(records)
	if errors.Is(err, analysis.ErrInsufficientData) {
		writeJSON(w, 200, map[string]any{
			"status":   "insufficient_data",
			"required": analysis.MinRecords,
			"records":  len(records),
		})
		return
	}
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	// Points pair the layout with record identity so the client does not
	// re-join by index.
	type point struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Category string  `json:"category"`
		Label    int     `json:"label"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Degraded bool    `json:"degraded"`
	}
	points := make([]point, len(records))
	for i, rec := range records {
		points[i] = point{
			ID:       rec.ID,
			Title:    rec.Title,
			Category: rec.Category,
			Label:    result.Labels[i],
			X:        result.X[i],
			Y:        result.Y[i],
			Degraded: result.Degraded[i],
		}
	}
	writeJSON(w, 200, map[string]any{
		"status":  "ok",
		"k":       result.K,
		"records": len(records),
		"points":  points,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if !s.credentialVerified {
		writeError(w, 503, "external service credentials are not configured")
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON body")
		return
	}
	selection := s.store.Select(req.IDs)
	if len(selection) == 0 {
		writeError(w, 400, "selection matches no stored patents")
		return
	}

	report, err := s.reporter.Generate(r.Context(), selection)
	if err != nil {
		writeError(w, 502, err.Error())
		return
	}
	html, err := trendreport.RenderHTML(report)
	if err != nil {
		log.Printf("report html preview: %v", err)
		html = ""
	}
	writeJSON(w, 200, map[string]any{
		"markdown": report,
		"html":     html,
		"filename": trendreport.Filename(time.Now()),
		"patents":  len(selection),
	})
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if s.pdf == nil {
		writeError(w, 501, "PDF export is not available")
		return
	}
	var req struct {
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Markdown) == "" {
		writeError(w, 400, "markdown field is required")
		return
	}
	pdf, err := s.pdf.Render(r.Context(), req.Markdown)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	name := strings.TrimSuffix(trendreport.Filename(time.Now()), ".md") + ".pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}
