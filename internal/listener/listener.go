// Package listener polls a drop folder for new offer spreadsheets and
// runs each one as an independent batch worker.
package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"offerhub/internal/config"
	"offerhub/internal/pipeline"
	"offerhub/internal/storage"
)

type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.InboxDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.cfg.InboxDir, "processed"), 0o755); err != nil {
		return err
	}

	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

// runCycle claims every spreadsheet currently in the inbox and
// processes them concurrently, bounded by ListenerMaxBatches. Files
// are moved aside before processing so the next cycle cannot pick them
// up twice. No synchronization happens between batches.
func (s *Service) runCycle(ctx context.Context) error {
	entries, err := os.ReadDir(s.cfg.InboxDir)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, s.cfg.ListenerMaxBatches)
	var wg sync.WaitGroup
	claimed := 0

	for _, entry := range entries {
		if entry.IsDir() || !isSpreadsheet(entry.Name()) {
			continue
		}

		src := filepath.Join(s.cfg.InboxDir, entry.Name())
		dst := filepath.Join(s.cfg.InboxDir, "processed", entry.Name())
		if err := os.Rename(src, dst); err != nil {
			fmt.Printf("listener: cannot claim %s: %v\n", entry.Name(), err)
			continue
		}
		claimed++

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s.ingestOne(ctx, path)
		}(dst)
	}

	wg.Wait()
	if claimed > 0 {
		fmt.Printf("listener cycle done files=%d\n", claimed)
	}
	return nil
}

func (s *Service) ingestOne(ctx context.Context, path string) {
	// Each batch gets its own processor; batches share nothing but the
	// database.
	processor := pipeline.NewProcessor(s.db, s.cfg)
	summary, err := processor.IngestFile(ctx, path)
	if err != nil {
		fmt.Printf("listener: ingest %s failed: %v\n", filepath.Base(path), err)
		return
	}

	if !s.cfg.ListenerAutoExport {
		return
	}
	snap, err := s.db.GetSnapshot(summary.BatchID)
	if err != nil || snap == nil {
		fmt.Printf("listener: no snapshot to export for batch %s\n", summary.BatchID)
		return
	}
	out := filepath.Join(s.cfg.OutputDir, "listener", summary.BatchID+".xlsx")
	if err := pipeline.ExportSnapshotToXLSX(*snap, out); err != nil {
		fmt.Printf("listener: export for batch %s failed: %v\n", summary.BatchID, err)
	}
}

func isSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	default:
		return false
	}
}
