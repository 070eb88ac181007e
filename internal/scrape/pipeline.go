package scrape

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okunev/tamada/pkg/tamada"
	"github.com/okunev/tamada/pkg/tamada/config"
	"github.com/okunev/tamada/pkg/tamada/store"
)

// DefaultSources is the built-in source registry, used when no sources
// file is configured.
var DefaultSources = []config.Source{
	{ID: "alcofan", StartURL: "https://alcofan.com/luchshie-tosty-interneta", MaxPages: 50},
	{ID: "toast-ru", StartURL: "http://www.toast.ru/toast/", MaxPages: 200},
	{ID: "pozdravuha", StartURL: "https://www.pozdravuha.ru/p/tosty", MaxPages: 200},
}

// IngestAll scrapes every source concurrently and feeds the collected
// batches through the engine. Sources that fail are logged and skipped;
// the run fails only when nothing could be ingested.
func IngestAll(ctx context.Context, eng *tamada.Engine, f Fetcher, sources []config.Source) ([]store.IngestRun, error) {
	if len(sources) == 0 {
		sources = DefaultSources
	}

	var mu sync.Mutex
	batches := make(map[string]Result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			extractor, err := Lookup(src.ID)
			if err != nil {
				return err
			}
			res, err := Walk(gctx, f, extractor, src.StartURL, src.MaxPages)
			if err != nil {
				log.Printf("source %s: %v", src.ID, err)
				return nil
			}
			log.Printf("source %s: %d toasts over %d pages", src.ID, len(res.Texts), res.Pages)

			mu.Lock()
			batches[src.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ingestion is sequential: tag derivation batches per source and
	// the store serializes writes anyway.
	var runs []store.IngestRun
	for _, src := range sources {
		res, ok := batches[src.ID]
		if !ok || len(res.Texts) == 0 {
			continue
		}
		run, err := eng.Ingest(ctx, tamada.IngestBatch{
			Source:       src.ID,
			Texts:        res.Texts,
			CategoryTags: res.Tags,
		})
		if err != nil {
			return runs, fmt.Errorf("ingest %s: %w", src.ID, err)
		}
		runs = append(runs, run)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("no source yielded any toasts")
	}
	return runs, nil
}
