package main

import (
	"fmt"
	"time"

	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/config"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/provider"
	"github.com/waveCodeSite/aicg/internal/provider/genericrest"
	"github.com/waveCodeSite/aicg/internal/provider/volcengine"
	"github.com/waveCodeSite/aicg/internal/repository"
)

// deps bundles the shared dependencies the serve, worker, sweeper and
// compose subcommands need; migrate opens its own database handle instead.
type deps struct {
	repo  *repository.Repository
	blobs *blobstore.Store
}

// openDeps connects to MySQL and the blob store and builds the Artifact
// Repository, the pair every subcommand except a bare `migrate` needs.
func openDeps(cfg *config.Config) (*deps, error) {
	db, err := models.OpenMySQL(cfg.MySQL.DSN)
	if err != nil {
		return nil, wrapStartup(fmt.Errorf("open mysql: %w", err))
	}
	blobs, err := blobstore.New(blobstore.Config{
		Endpoint:   cfg.Blob.Endpoint,
		AccessKey:  cfg.Blob.AccessKey,
		SecretKey:  cfg.Blob.SecretKey,
		Bucket:     cfg.Blob.Bucket,
		Secure:     cfg.Blob.Secure,
		PresignTTL: time.Duration(cfg.Blob.PresignTTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, wrapStartup(fmt.Errorf("open blob store: %w", err))
	}
	return &deps{repo: repository.New(db, blobs), blobs: blobs}, nil
}

// buildRegistry registers every known provider Factory, regardless of
// whether an APIKey for it exists yet: the registry is a static catalog of
// how to build an adapter for a provider name, api_key rows choose which
// entries actually get used.
func buildRegistry() *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register("volcengine", func(secret, baseURL string) provider.Adapter {
		a := volcengine.New(secret, baseURL)
		return provider.Adapter{Image: a, Video: a}
	})
	reg.Register("generic", func(secret, baseURL string) provider.Adapter {
		a := genericrest.New(baseURL, secret)
		return provider.Adapter{Text: a, TTS: a}
	})
	return reg
}
