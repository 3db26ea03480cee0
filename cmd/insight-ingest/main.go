package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/patent-insight/internal/analysis"
	"github.com/joelkehle/patent-insight/internal/embed"
	"github.com/joelkehle/patent-insight/internal/extract"
	"github.com/joelkehle/patent-insight/internal/ingest"
	"github.com/joelkehle/patent-insight/internal/portfolio"
	"github.com/joelkehle/patent-insight/internal/summarize"
	"github.com/joelkehle/patent-insight/internal/trendreport"
)

func main() {
	var (
		seed       = flag.Int64("seed", 42, "random seed for clustering and projection")
		withReport = flag.Bool("report", false, "generate a trend report over the ingested patents")
		outDir     = flag.String("out", ".", "directory for the generated report file")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: insight-ingest [flags] file.pdf [file.pdf ...]")
	}

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	caller, err := summarize.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatalf("summarization: %v", err)
	}
	source, err := embed.NewGeminiSourceFromEnv(ctx)
	if err != nil {
		log.Fatalf("embedding: %v", err)
	}

	var files []ingest.File
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		files = append(files, ingest.File{Name: filepath.Base(path), Data: data})
	}

	store := portfolio.NewStore()
	pipeline := ingest.NewPipeline(
		extract.PDF{},
		summarize.New(caller, summarize.Config{}),
		embed.New(source, embed.Config{}),
		store,
	)

	progress := func(idx, total int, stage ingest.Stage, message string) {
		log.Printf("[%d/%d] %s: %s", idx+1, total, stage, message)
	}
	report := pipeline.Run(ctx, files, progress)

	for _, res := range report.Results {
		switch {
		case res.Failed:
			fmt.Printf("FAIL  %-30s %s: %s\n", res.Filename, res.Stage, res.Reason)
		case res.Degraded:
			fmt.Printf("OK*   %-30s %s (placeholder embedding)\n", res.Filename, res.RecordID)
		default:
			fmt.Printf("OK    %-30s %s\n", res.Filename, res.RecordID)
		}
	}
	fmt.Printf("ingested %d, failed %d\n", report.Ingested, report.Failed)

	records := store.Snapshot()
	if len(records) >= analysis.MinRecords {
		analyzer := analysis.New(analysis.Config{Seed: *seed})
		result, err := analyzer.Analyze(records)
		if err != nil {
			log.Fatalf("analysis: %v", err)
		}
		fmt.Printf("\nclusters (k=%d):\n", result.K)
		for i, rec := range records {
			fmt.Printf("  %s  cluster=%d  (%.2f, %.2f)  %s\n",
				rec.ID, result.Labels[i], result.X[i], result.Y[i], rec.Title)
		}
	} else {
		fmt.Printf("\nanalysis skipped: %d of %d required patents\n", len(records), analysis.MinRecords)
	}

	if *withReport && len(records) > 0 {
		generator := trendreport.New(caller, trendreport.Config{})
		markdown, err := generator.Generate(ctx, records)
		if err != nil {
			log.Fatalf("trend report: %v", err)
		}
		path := filepath.Join(*outDir, trendreport.Filename(time.Now()))
		if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
		fmt.Printf("\ntrend report written to %s\n", path)
	}
}
