// Command tamada runs the toast bot as an interactive console chat.
// On an empty database it first scrapes the configured sources to
// build the corpus, then serves the dialogue loop.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
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
		chatID         = flag.Int64("chat", 1, "Chat id for this session")
		noIngest       = flag.Bool("no-ingest", false, "Fail instead of scraping when the corpus is empty")
		timeout        = flag.Duration("timeout", 30*time.Second, "Per-request HTTP timeout for first-boot scraping")
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

	// The serving path stays unreachable until the corpus exists.
	needs, err := eng.NeedsIngestion(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if needs {
		if *noIngest {
			log.Fatal("corpus is empty, run cmd/bootstrap first")
		}
		log.Println("corpus is empty, scraping sources (first boot)...")
		if _, err := scrape.IngestAll(ctx, eng, scrape.NewClient(*timeout), comp.Sources); err != nil {
			log.Fatal(err)
		}
	}

	session := NewSession(eng, *chatID, os.Stdout)

	fmt.Println("===========================================")
	fmt.Println("  Тамада-бот")
	fmt.Println("  /start — начать, Ctrl+D — выйти")
	fmt.Println("===========================================")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if err := session.Handle(ctx, input); err != nil {
			fmt.Println("Error:", err)
		}
	}

	fmt.Println("\nПока! 🥂")
}
