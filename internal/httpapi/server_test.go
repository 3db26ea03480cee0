package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/patent-insight/internal/analysis"
	"github.com/joelkehle/patent-insight/internal/ingest"
	"github.com/joelkehle/patent-insight/internal/portfolio"
)

type fakePipeline struct {
	gotFiles []ingest.File
	report   ingest.BatchReport
}

func (f *fakePipeline) Run(ctx context.Context, files []ingest.File, progress ingest.ProgressFn) ingest.BatchReport {
	f.gotFiles = files
	return f.report
}

type fakeAnalyzer struct {
	result analysis.Result
	err    error
}

func (f *fakeAnalyzer) Analyze(records []portfolio.PatentRecord) (analysis.Result, error) {
	if f.err != nil {
		return analysis.Result{}, f.err
	}
	return f.result, nil
}

type fakeReporter struct {
	gotSelection []portfolio.PatentRecord
	report       string
	err          error
}

func (f *fakeReporter) Generate(ctx context.Context, selection []portfolio.PatentRecord) (string, error) {
	f.gotSelection = selection
	return f.report, f.err
}

type fakePDF struct {
	out []byte
	err error
}

func (f *fakePDF) Render(ctx context.Context, report string) ([]byte, error) {
	return f.out, f.err
}

func seedStore(t *testing.T, n int) *portfolio.Store {
	t.Helper()
	store := portfolio.NewStore()
	for i := 0; i < n; i++ {
		rec := portfolio.PatentRecord{
			Filename:    "doc.pdf",
			Title:       "Patent " + string(rune('A'+i)),
			Category:    "AI",
			Embedding:   []float64{float64(i), 1, 2, 3},
			ProcessedAt: time.Now().UTC(),
		}
		if _, err := store.Append(rec); err != nil {
			t.Fatalf("seed append: %v", err)
		}
	}
	return store
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/health", nil))
	if rec.Code != 200 {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestSessionReportsCredentialsAndCounts(t *testing.T) {
	store := seedStore(t, 2)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/session", nil))

	body := decodeBody(t, rec)
	if body["credential_verified"] != false {
		t.Fatalf("credential_verified = %v, want false", body["credential_verified"])
	}
	if body["records"] != float64(2) {
		t.Fatalf("records = %v, want 2", body["records"])
	}
	cats, ok := body["categories"].(map[string]any)
	if !ok || cats["AI"] != float64(2) {
		t.Fatalf("categories = %v", body["categories"])
	}
}

func multipartUpload(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.7 payload for " + name)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestIngestPassesUploadsToPipeline(t *testing.T) {
	pipeline := &fakePipeline{report: ingest.BatchReport{Ingested: 2}}
	h := NewServer(portfolio.NewStore(), pipeline, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	buf, contentType := multipartUpload(t, "a.pdf", "b.pdf")
	req := httptest.NewRequest("POST", "/v1/ingest", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(pipeline.gotFiles) != 2 {
		t.Fatalf("pipeline got %d files, want 2", len(pipeline.gotFiles))
	}
	if pipeline.gotFiles[0].Name != "a.pdf" || pipeline.gotFiles[1].Name != "b.pdf" {
		t.Fatalf("file names = %q, %q", pipeline.gotFiles[0].Name, pipeline.gotFiles[1].Name)
	}
	if len(pipeline.gotFiles[0].Data) == 0 {
		t.Fatal("file data was not forwarded")
	}
}

func TestIngestRefusesWithoutCredentials(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, false)

	buf, contentType := multipartUpload(t, "a.pdf")
	req := httptest.NewRequest("POST", "/v1/ingest", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("ingest without credentials status = %d, want 503", rec.Code)
	}
}

func TestIngestRequiresFiles(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no files here")
	mw.Close()
	req := httptest.NewRequest("POST", "/v1/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("empty ingest status = %d, want 400", rec.Code)
	}
}

func TestPatentsListOmitsVectors(t *testing.T) {
	store := seedStore(t, 2)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/patents", nil))

	body := decodeBody(t, rec)
	if body["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", body["count"])
	}
	patents := body["patents"].([]any)
	first := patents[0].(map[string]any)
	if _, present := first["embedding"]; present {
		t.Fatal("listing must not include the raw embedding")
	}
	if first["embedding_dim"] != float64(4) {
		t.Fatalf("embedding_dim = %v, want 4", first["embedding_dim"])
	}
	if first["id"] != "PAT-000001" {
		t.Fatalf("id = %v", first["id"])
	}
}

func TestPatentDetailAndNotFound(t *testing.T) {
	store := seedStore(t, 1)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/patents/PAT-000001", nil))
	if rec.Code != 200 {
		t.Fatalf("detail status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, present := body["embedding"]; !present {
		t.Fatal("detail view should include the embedding")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/patents/PAT-999999", nil))
	if rec.Code != 404 {
		t.Fatalf("missing patent status = %d, want 404", rec.Code)
	}
}

func TestClearPortfolio(t *testing.T) {
	store := seedStore(t, 3)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("DELETE", "/v1/patents", nil))
	if rec.Code != 200 {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("store has %d records after clear", store.Len())
	}
}

func TestAnalysisInsufficientData(t *testing.T) {
	store := seedStore(t, 2)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{err: analysis.ErrInsufficientData}, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/analysis", nil))
	if rec.Code != 200 {
		t.Fatalf("analysis status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "insufficient_data" {
		t.Fatalf("status = %v", body["status"])
	}
	if body["required"] != float64(analysis.MinRecords) {
		t.Fatalf("required = %v", body["required"])
	}
}

func TestAnalysisJoinsPointsWithRecords(t *testing.T) {
	store := seedStore(t, 3)
	fa := &fakeAnalyzer{result: analysis.Result{
		K:        2,
		Labels:   []int{0, 1, 0},
		X:        []float64{1, 2, 3},
		Y:        []float64{-1, -2, -3},
		Degraded: []bool{false, true, false},
	}}
	h := NewServer(store, &fakePipeline{}, fa, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/analysis", nil))
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["k"] != float64(2) {
		t.Fatalf("status = %v, k = %v", body["status"], body["k"])
	}
	points := body["points"].([]any)
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	second := points[1].(map[string]any)
	if second["id"] != "PAT-000002" || second["label"] != float64(1) || second["degraded"] != true {
		t.Fatalf("second point = %v", second)
	}
}

func TestReportGeneration(t *testing.T) {
	store := seedStore(t, 3)
	reporter := &fakeReporter{report: "# Patent Portfolio Trend Report\n\n## Executive Summary\n\nSteady."}
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, reporter, nil, true)

	payload := strings.NewReader(`{"ids":["PAT-000003","PAT-000001"]}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/reports", payload))
	if rec.Code != 200 {
		t.Fatalf("report status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(reporter.gotSelection) != 2 {
		t.Fatalf("selection size = %d, want 2", len(reporter.gotSelection))
	}
	if reporter.gotSelection[0].ID != "PAT-000003" {
		t.Fatalf("selection order not preserved: %s", reporter.gotSelection[0].ID)
	}

	body := decodeBody(t, rec)
	if body["markdown"] != reporter.report {
		t.Fatal("markdown was not returned verbatim")
	}
	html := body["html"].(string)
	if !strings.Contains(html, "<h1") {
		t.Fatalf("html preview missing heading: %q", html)
	}
	name := body["filename"].(string)
	if !strings.HasPrefix(name, "patent-trend-report_") || !strings.HasSuffix(name, ".md") {
		t.Fatalf("filename = %q", name)
	}
}

func TestReportRejectsEmptySelection(t *testing.T) {
	store := seedStore(t, 1)
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/reports", strings.NewReader(`{"ids":["PAT-000099"]}`)))
	if rec.Code != 400 {
		t.Fatalf("unknown selection status = %d, want 400", rec.Code)
	}
}

func TestReportSurfacesGenerationFailure(t *testing.T) {
	store := seedStore(t, 1)
	reporter := &fakeReporter{err: errors.New("model overloaded")}
	h := NewServer(store, &fakePipeline{}, &fakeAnalyzer{}, reporter, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/reports", strings.NewReader(`{"ids":["PAT-000001"]}`)))
	if rec.Code != 502 {
		t.Fatalf("failed report status = %d, want 502", rec.Code)
	}
	body := decodeBody(t, rec)
	if !strings.Contains(body["error"].(string), "model overloaded") {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestReportPDF(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, &fakePDF{out: []byte("%PDF-1.4")}, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/reports/pdf", strings.NewReader(`{"markdown":"# Report"}`)))
	if rec.Code != 200 {
		t.Fatalf("pdf status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".pdf") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Fatal("pdf bytes were not passed through")
	}
}

func TestReportPDFUnavailable(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/reports/pdf", strings.NewReader(`{"markdown":"# Report"}`)))
	if rec.Code != 501 {
		t.Fatalf("pdf unavailable status = %d, want 501", rec.Code)
	}
}

func TestMethodGuards(t *testing.T) {
	h := NewServer(portfolio.NewStore(), &fakePipeline{}, &fakeAnalyzer{}, &fakeReporter{}, nil, true)
	cases := []struct {
		method, path string
	}{
		{"POST", "/v1/health"},
		{"DELETE", "/v1/session"},
		{"GET", "/v1/ingest"},
		{"POST", "/v1/patents/PAT-000001"},
		{"GET", "/v1/reports"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}
