// Package repository is the Artifact Repository of spec.md §4.2: typed CRUD
// over the data model, with the single path that mutates a *_url field also
// appending a GenerationHistory row inside the same transaction. Generalizes
// the teacher's models/db.go raw-SQL CRUD functions and models/shot.go's
// UpdateImage into transactional, history-aware upserts.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/blobstore"
	"github.com/waveCodeSite/aicg/internal/models"
)

type Repository struct {
	db    *gorm.DB
	blobs *blobstore.Store
}

func New(db *gorm.DB, blobs *blobstore.Store) *Repository {
	return &Repository{db: db, blobs: blobs}
}

func (r *Repository) DB() *gorm.DB { return r.db }

// urlUpdate is a single field+history write requested by UpsertURL.
type urlUpdate struct {
	resourceType models.ArtifactKind
	resourceID   string
	newURL       string
	priorURL     string
	prompt       string
	model        string
}

// upsertURL performs the one contractual write path for any artifact field
// ending in *_url: the caller has already uploaded bytes to the Blob Store
// and computed newURL; this method transactionally writes newURL into the
// row via apply, and — if priorURL is non-empty — appends a
// GenerationHistory entry carrying the prior URL, so an artifact whose URL
// has been written n times has n-1 history rows.
func (r *Repository) upsertURL(ctx context.Context, u urlUpdate, apply func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := apply(tx); err != nil {
			return err
		}
		if u.priorURL != "" {
			hist := &models.GenerationHistory{
				ID:           uuid.NewString(),
				ResourceType: string(u.resourceType),
				ResourceID:   u.resourceID,
				URL:          u.priorURL,
				Prompt:       u.prompt,
				Model:        u.model,
			}
			if err := tx.Create(hist).Error; err != nil {
				return fmt.Errorf("append generation history: %w", err)
			}
		}
		return nil
	})
}

// History returns every prior version of a resource's artifact and whether
// any exist, implementing the `has_history` flag of spec.md §4.2.
func (r *Repository) History(ctx context.Context, resourceType models.ArtifactKind, resourceID string) ([]models.GenerationHistory, bool, error) {
	var rows []models.GenerationHistory
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", string(resourceType), resourceID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, false, err
	}
	return rows, len(rows) > 0, nil
}

// wrapNotFound turns a gorm.ErrRecordNotFound into an apperr NotFoundError,
// leaving other errors (connection failures, etc.) untouched; such
// unclassified errors are not retryable under apperr.Retryable, so the Task
// Runtime fails the task on them without a retry.
func wrapNotFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if err == gorm.ErrRecordNotFound {
		return apperr.NotFound(what + " not found")
	}
	return err
}
