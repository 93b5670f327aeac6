// Command indexer feeds documents into the search engine from the command
// line. By default it indexes the given files and URLs in-process, writing
// through to the configured storage, and prints the batch summary. With
// -enqueue it reads the files locally and publishes them as one ingest event
// for a running search service to consume.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/fetcher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	lang := flag.String("lang", "", "language tag (defaults to indexer.defaultLanguage)")
	computeStats := flag.Bool("stats", false, "compute and persist tfidf statistics after indexing")
	enqueue := flag.Bool("enqueue", false, "publish the documents to kafka instead of indexing locally")
	lookup := flag.String("lookup", "", "print the stored doc IDs for a normalized token and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *lang == "" {
		*lang = cfg.Indexer.DefaultLanguage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *lookup != "":
		err = runLookup(ctx, cfg, *lookup)
	case *enqueue:
		err = runEnqueue(ctx, cfg, flag.Args(), *lang)
	default:
		err = runLocal(ctx, cfg, flag.Args(), *lang, *computeStats)
	}
	if err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func runLocal(ctx context.Context, cfg *config.Config, sources []string, lang string, computeStats bool) error {
	if len(sources) == 0 {
		return fmt.Errorf("no files or URLs given")
	}
	tok, err := tokenizer.New(cfg.Languages)
	if err != nil {
		return fmt.Errorf("building tokenizer: %w", err)
	}
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	} else {
		slog.Warn("storage driver is none, results are not persisted")
	}

	engine := indexer.NewEngine(cfg.Indexer, tok, indexer.Options{
		Store:   store,
		Fetcher: fetcher.New(cfg.Fetcher, nil, nil).WithLocalFiles(),
	})
	resp, err := ingestion.Run(ctx, engine, uuid.NewString(), nil, sources, lang, false)
	if err != nil {
		return err
	}
	if err := printJSON(resp); err != nil {
		return err
	}

	if computeStats {
		scores, err := engine.ComputeStatistics(ctx, lang)
		if scores == nil && err != nil {
			return err
		}
		if err != nil {
			slog.Error("statistics computed but not fully persisted", "error", err)
		}
		slog.Info("statistics computed", "scores", len(scores), "terms", engine.Stats().Len())
	}
	return nil
}

func runEnqueue(ctx context.Context, cfg *config.Config, paths []string, lang string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files given")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are not configured")
	}
	req := &ingestion.IngestRequest{Language: lang}
	for _, path := range paths {
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			req.URLs = append(req.URLs, path)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		req.Documents = append(req.Documents, string(data))
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	resp, err := publisher.New(producer).Enqueue(ctx, req, lang)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runLookup(ctx context.Context, cfg *config.Config, token string) error {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	if store == nil {
		return fmt.Errorf("storage driver is none")
	}
	defer store.Close()

	ids, err := store.QueryDocIDsForToken(ctx, token)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"token": token, "doc_ids": ids.ToArray()})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
