// Command bootstrap runs the one-shot corpus build: it scrapes every
// configured toast source, derives tags, and fills the database. Meant
// to run once before the bot starts serving; re-running adds whatever
// the sources now carry.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/okunev/tamada/internal/scrape"
	"github.com/okunev/tamada/pkg/tamada"
	"github.com/okunev/tamada/pkg/tamada/config"
	"github.com/okunev/tamada/pkg/tamada/store/sqlite"
)

func main() {
	var (
		dbPath         = flag.String("db", "", "Database path (required)")
		paramsPath     = flag.String("params", "", "Engine params file (optional)")
		stoplistPath   = flag.String("stoplist", "", "Stopword list file (optional)")
		exceptionsPath = flag.String("exceptions", "", "Lemma exceptions file (optional)")
		sourcesPath    = flag.String("sources", "", "Sources registry file (optional)")
		timeout        = flag.Duration("timeout", 30*time.Second, "Per-request HTTP timeout")
		force          = flag.Bool("force", false, "Ingest even when the corpus is not empty")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()

	loader := &config.Loader{
		ParamsPath:     *paramsPath,
		StoplistPath:   *stoplistPath,
		ExceptionsPath: *exceptionsPath,
		SourcesPath:    *sourcesPath,
	}
	comp, err := loader.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal(err)
	}

	eng := tamada.New(tamada.Options{
		Store:             st,
		Normalizer:        comp.Normalizer,
		TopTags:           comp.Params.TopTags,
		MaxFeatures:       comp.Params.MaxFeatures,
		MaxSampleAttempts: comp.Params.MaxSampleAttempts,
		TagCacheSize:      comp.Params.TagCacheSize,
	})
	defer eng.Close()

	if err := eng.Bootstrap(ctx); err != nil {
		log.Fatal(err)
	}

	if !*force {
		needs, err := eng.NeedsIngestion(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if !needs {
			log.Println("corpus already populated, use --force to ingest anyway")
			return
		}
	}

	started := time.Now()
	runs, err := scrape.IngestAll(ctx, eng, scrape.NewClient(*timeout), comp.Sources)
	if err != nil {
		log.Fatal(err)
	}

	total := 0
	for _, run := range runs {
		log.Printf("run %s: %s ingested %d toasts", run.ID, run.Source, run.Toasts)
		total += run.Toasts
	}
	log.Printf("done: %d toasts from %d sources in %s", total, len(runs), time.Since(started).Round(time.Second))
}
