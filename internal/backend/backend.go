// Package backend builds the product store, tag store and image store
// selected by configuration and owns their lifecycle.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/internal/app/repository"
	"github.com/ikkim/inventory-backend/internal/db"
	"github.com/ikkim/inventory-backend/internal/storage"
	"github.com/ikkim/inventory-backend/pkg/kvrest"
	"github.com/ikkim/inventory-backend/pkg/logger"
	appredis "github.com/ikkim/inventory-backend/pkg/redis"
)

// Backend holds the opened stores. Call Close on shutdown.
type Backend struct {
	Products repository.ProductRepository
	Tags     repository.TagRepository
	Images   storage.ImageStore

	// LocalImages is set when images live on local disk and must be served.
	LocalImages *storage.LocalStorage

	closers []func() error
}

// Open connects to the configured stores. On error, anything already
// opened is closed again.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}
	if err := b.openStore(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.seedTags(ctx, cfg.Store.SeedTags); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openImages(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}

	logger.Info("Storage backends ready", map[string]interface{}{
		"store":  cfg.Store.Backend,
		"images": cfg.Image.Backend,
	})
	return b, nil
}

func (b *Backend) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Backend {
	case config.StoreFile:
		b.Products = repository.NewFileProductRepository(cfg.Store.DataDir)
		b.Tags = repository.NewFileTagRepository(cfg.Store.DataDir)

	case config.StorePostgres:
		database, err := db.Open(&cfg.Database)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() error { return db.Close(database) })
		if err := db.Migrate(database); err != nil {
			return err
		}
		b.Products = repository.NewProductRepository(database)
		b.Tags = repository.NewTagRepository(database)

	case config.StoreRedis:
		client, err := appredis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		kv := appredis.NewKV(client)
		b.closers = append(b.closers, kv.Close)
		b.Products = repository.NewKVProductRepository(kv, cfg.Store.KeyPrefix)
		b.Tags = repository.NewKVTagRepository(kv, cfg.Store.KeyPrefix)

	case config.StoreKVRest:
		client := kvrest.New(kvrest.Options{
			URL:       cfg.KVRest.URL,
			Token:     cfg.KVRest.Token,
			Timeout:   cfg.KVRest.Timeout,
			RateLimit: cfg.KVRest.RateLimit,
		})
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach key-value REST endpoint: %w", err)
		}
		b.Products = repository.NewKVProductRepository(client, cfg.Store.KeyPrefix)
		b.Tags = repository.NewKVTagRepository(client, cfg.Store.KeyPrefix)

	case config.StoreBadger:
		bdb, err := db.OpenBadger(cfg.Badger.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, bdb.Close)
		b.Products = repository.NewBadgerProductRepository(bdb)
		b.Tags = repository.NewBadgerTagRepository(bdb)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return nil
}

// seedTags fills an empty tag store with names. A store that already has
// tags is left alone.
func (b *Backend) seedTags(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	existing, err := b.Tags.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("Tags already seeded, skipping...", map[string]interface{}{
			"existing_count": len(existing),
		})
		return nil
	}
	if err := b.Tags.ReplaceAll(ctx, names); err != nil {
		logger.Error("Failed to seed tags", err)
		return err
	}
	logger.Info("Tags seeded successfully", map[string]interface{}{
		"total_records": len(names),
	})
	return nil
}

func (b *Backend) openImages(ctx context.Context, cfg *config.Config) error {
	switch cfg.Image.Backend {
	case config.ImageLocal:
		local, err := storage.NewLocalStorage(cfg.Image.Dir, cfg.Image.PublicPrefix)
		if err != nil {
			return err
		}
		b.Images = local
		b.LocalImages = local

	case config.ImageS3:
		s3, err := storage.NewS3Storage(ctx, storage.S3Options{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			BaseURL:         cfg.S3.BaseURL,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return err
		}
		b.Images = s3

	default:
		return fmt.Errorf("unknown image backend %q", cfg.Image.Backend)
	}
	return nil
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
