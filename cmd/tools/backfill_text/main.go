// Command backfill_text extracts searchable text for documents uploaded
// before extraction was enabled, or whose extraction failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"nexus-ats/internal/blob"
	"nexus-ats/internal/config"
	"nexus-ats/internal/cv"
	"nexus-ats/internal/logging"
	"nexus-ats/internal/service"
	"nexus-ats/internal/storage"
)

func main() {
	var dryRun bool
	var limit int
	var pause time.Duration
	flag.BoolVar(&dryRun, "dry-run", true, "If true, do not persist updates; just report what would change")
	flag.IntVar(&limit, "limit", 200, "Max number of candidates to scan in one run")
	flag.DurationVar(&pause, "pause", 0, "Sleep after each stored document")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Component("backfill_text")

	ctx := context.Background()
	db, err := storage.NewDB(ctx, storage.Options{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer db.Close(context.Background())

	var store blob.Store
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := blob.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres blob store")
		}
		defer pg.Close()
		store = pg
	default:
		fs, err := blob.NewFileStore(cfg.Storage.Root)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open file blob store")
		}
		store = fs
	}

	b := backfiller{
		repo:      db,
		store:     store,
		extractor: cv.NewTextExtractor(),
		log:       log,
		dryRun:    dryRun,
		pause:     pause,
	}
	res, err := b.run(ctx, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("backfill failed")
	}
	log.Info().
		Int("scanned", res.scanned).
		Int("updated", res.updated).
		Int("skipped", res.skipped).
		Int("failed", res.failed).
		Bool("dry_run", dryRun).
		Msg("backfill run complete")
}

type result struct {
	scanned, updated, skipped, failed int
}

type backfiller struct {
	repo      storage.CandidateRepository
	store     blob.Store
	extractor service.TextExtractor
	log       zerolog.Logger
	dryRun    bool
	// pause is slept after each stored document.
	pause time.Duration
}

// missingText selects active candidates holding at least one active document
// without extracted text.
func missingText() bson.M {
	return bson.M{"documents": bson.M{"$elemMatch": bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"extractedText": bson.M{"$exists": false}},
			bson.M{"extractedText": ""},
		},
	}}}
}

func (b *backfiller) run(ctx context.Context, limit int) (result, error) {
	var res result
	candidates, err := b.repo.Find(ctx, missingText(), storage.FindOptions{Limit: int64(limit)})
	if err != nil {
		return res, fmt.Errorf("find candidates: %w", err)
	}
	res.scanned = len(candidates)
	b.log.Info().Int("candidates", len(candidates)).Int("limit", limit).Msg("found candidates with documents lacking text")

	for _, c := range candidates {
		for _, doc := range c.Documents {
			if !doc.IsActive || doc.ExtractedText != "" {
				continue
			}
			l := b.log.With().Str("candidate_id", c.ID.Hex()).Str("document_id", doc.ID.Hex()).Logger()
			if !b.extractor.Supports(doc.MimeType) {
				res.skipped++
				continue
			}

			data, err := b.store.Read(ctx, doc.FilePath)
			if err != nil {
				l.Warn().Err(err).Str("path", doc.FilePath).Msg("document bytes unavailable")
				res.failed++
				continue
			}
			text, err := b.extractor.Extract(data, doc.MimeType)
			if err != nil {
				l.Warn().Err(err).Msg("text extraction failed")
				res.failed++
				continue
			}
			if text == "" {
				res.skipped++
				continue
			}

			if b.dryRun {
				l.Info().Int("chars", len(text)).Msg("[dry-run] would store extracted text")
				res.updated++
				continue
			}
			if err := b.repo.SetDocumentText(ctx, c.ID, doc.ID, text); err != nil {
				l.Error().Err(err).Msg("failed to store extracted text")
				res.failed++
				continue
			}
			res.updated++
			if b.pause > 0 {
				time.Sleep(b.pause)
			}
		}
	}
	return res, nil
}
