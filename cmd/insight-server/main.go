package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/patent-insight/internal/analysis"
	"github.com/joelkehle/patent-insight/internal/embed"
	"github.com/joelkehle/patent-insight/internal/extract"
	"github.com/joelkehle/patent-insight/internal/httpapi"
	"github.com/joelkehle/patent-insight/internal/ingest"
	"github.com/joelkehle/patent-insight/internal/portfolio"
	"github.com/joelkehle/patent-insight/internal/summarize"
	"github.com/joelkehle/patent-insight/internal/trendreport"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		seed       = flag.Int64("seed", 42, "random seed for clustering and projection")
		charBudget = flag.Int("summary-chars", summarize.DefaultCharBudget, "max characters of document text sent for summarization")
		embedChars = flag.Int("embed-chars", embed.DefaultCharBudget, "max characters of document text sent for embedding")
		disablePDF = flag.Bool("no-pdf", false, "disable PDF export even when Chromium is available")
	)
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	verified := true
	caller, err := summarize.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Printf("warning: summarization unavailable: %v", err)
		verified = false
	}
	source, err := embed.NewGeminiSourceFromEnv(ctx)
	if err != nil {
		log.Printf("warning: embedding unavailable: %v", err)
		verified = false
	}

	store := portfolio.NewStore()
	analyzer := analysis.New(analysis.Config{Seed: *seed})

	var pipeline httpapi.BatchIngester
	var reporter httpapi.ReportGenerator
	if verified {
		summarizer := summarize.New(caller, summarize.Config{CharBudget: *charBudget})
		embedder := embed.New(source, embed.Config{CharBudget: *embedChars})
		pipeline = ingest.NewPipeline(extract.PDF{}, summarizer, embedder, store)
		reporter = trendreport.New(caller, trendreport.Config{})
	}

	var pdf httpapi.PDFRenderer
	if !*disablePDF {
		pdf = trendreport.NewChromiumPDFRenderer()
	}

	handler := httpapi.NewServer(store, pipeline, analyzer, reporter, pdf, verified)

	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("patent-insight listening on %s (credentials verified=%t)", *addr, verified)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("patent-insight stopped")
}
