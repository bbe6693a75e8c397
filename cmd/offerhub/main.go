package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"offerhub/internal"
	"offerhub/internal/config"
	"offerhub/internal/pipeline"
	"offerhub/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "seed":
		products, suppliers, err := db.SeedCatalog()
		must(err)
		fmt.Printf("seed complete: products=%d suppliers=%d\n", products, suppliers)
	case "ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "offer spreadsheet (.xlsx/.csv)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		processor := pipeline.NewProcessor(db, cfg)
		summary, err := processor.IngestFile(context.Background(), *file)
		must(err)
		fmt.Printf("ingest done batch=%s total=%d valid=%d skipped=%d matched=%d created=%d\n",
			summary.BatchID, summary.TotalRows, summary.ValidCount, summary.SkippedCount,
			summary.MatchedCount, summary.NewlyCreatedCount)
	case "batches":
		batches, err := db.ListBatches()
		must(err)
		for _, b := range batches {
			rate := "0%"
			if b.ValidCount > 0 {
				rate = fmt.Sprintf("%.1f%%", float64(b.MatchedCount)/float64(b.ValidCount)*100)
			}
			fmt.Printf("%s  %-32s processed=%t total=%d valid=%d skipped=%d matchRate=%s\n",
				b.ID, b.OriginalName, b.Processed, b.TotalRows, b.ValidCount, b.SkippedCount, rate)
		}
	case "matches":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batchID := fs.String("batchId", "", "batch id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*batchID) == "" {
			must(fmt.Errorf("--batchId is required"))
		}
		batch, err := db.GetBatch(*batchID)
		must(err)
		if batch == nil {
			must(fmt.Errorf("batch not found: %s", *batchID))
		}
		snap, err := db.GetSnapshot(*batchID)
		must(err)
		if snap == nil {
			fmt.Printf("batch %s is still being processed, try again shortly\n", *batchID)
			return
		}
		printSnapshot(*snap)
	case "review:match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		matchID := fs.String("matchId", "", "audit match id")
		status := fs.String("status", "", "approved|pending|rejected")
		reviewer := fs.String("reviewer", "", "reviewer name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*matchID) == "" || strings.TrimSpace(*status) == "" {
			must(fmt.Errorf("--matchId and --status are required"))
		}
		must(db.UpdateAuditMatchReview(*matchID, internal.MatchStatus(*status), *reviewer))
		fmt.Printf("match %s set to %s\n", *matchID, *status)
	case "review:offer":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		offerID := fs.String("offerId", "", "supplier offer id")
		status := fs.String("status", "", "pending|accepted|rejected")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*offerID) == "" || strings.TrimSpace(*status) == "" {
			must(fmt.Errorf("--offerId and --status are required"))
		}
		must(db.UpdateMatchedOfferStatus(*offerID, internal.OfferStatus(*status)))
		fmt.Printf("offer %s set to %s\n", *offerID, *status)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batchID := fs.String("batchId", "", "batch id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*batchID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--batchId and --out are required"))
		}
		snap, err := db.GetSnapshot(*batchID)
		must(err)
		if snap == nil {
			must(fmt.Errorf("no snapshot for batch %s (still processing?)", *batchID))
		}
		must(pipeline.ExportSnapshotToXLSX(*snap, *out))
		fmt.Printf("exported %d matches and %d skipped rows to %s\n", len(snap.AnalyzedMatches), len(snap.SkippedRows), *out)
	case "samples":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", filepath.Join(cfg.OutputDir, "samples"), "output directory")
		_ = fs.Parse(os.Args[2:])
		paths, err := pipeline.WriteSampleWorkbooks(*dir)
		must(err)
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func printSnapshot(snap internal.BatchSnapshot) {
	fmt.Printf("batch %s: total=%d valid=%d skipped=%d matched=%d created=%d\n",
		snap.BatchID, snap.TotalRows, snap.ValidCount, snap.SkippedCount, snap.MatchedCount, snap.NewlyCreatedCount)
	for _, m := range snap.AnalyzedMatches {
		name := ""
		if m.MatchedProductName != nil {
			name = *m.MatchedProductName
		}
		fmt.Printf("  [%s] %-30s -> %-25s conf=%s supplier=%s\n", m.Status, m.ProductName, name, m.Confidence, m.SupplierName)
	}
	for _, s := range snap.SkippedRows {
		fmt.Printf("  [skipped] %-30s reason=%s\n", s.ProductName, s.Reason)
	}
}

func usage() {
	fmt.Println("usage: offerhub <command>")
	fmt.Println("commands:")
	fmt.Println("  seed")
	fmt.Println("  ingest --file=./offers.xlsx")
	fmt.Println("  batches")
	fmt.Println("  matches --batchId=...")
	fmt.Println("  review:match --matchId=... --status=approved|pending|rejected [--reviewer=...]")
	fmt.Println("  review:offer --offerId=... --status=pending|accepted|rejected")
	fmt.Println("  export:xlsx --batchId=... --out=./out/result.xlsx")
	fmt.Println("  samples [--dir=./out/samples]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
