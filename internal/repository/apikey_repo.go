package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/waveCodeSite/aicg/internal/models"
)

// APIKey CRUD is a supplemented feature (original_source/backend's
// system_setting/storage_config admin surface): per-user, per-provider
// credential records the Provider Adapter Layer reads at dispatch time.

func (r *Repository) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if k.Status == "" {
		k.Status = "active"
	}
	return r.db.WithContext(ctx).Create(k).Error
}

func (r *Repository) GetActiveAPIKey(ctx context.Context, userID, provider string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.WithContext(ctx).
		First(&k, "user_id = ? AND provider = ? AND status = ?", userID, provider, "active").Error
	if err != nil {
		return nil, wrapNotFound(err, "api key")
	}
	return &k, nil
}

func (r *Repository) GetActiveAPIKeyByID(ctx context.Context, id string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.WithContext(ctx).First(&k, "id = ? AND status = ?", id, "active").Error
	if err != nil {
		return nil, wrapNotFound(err, "api key")
	}
	return &k, nil
}

func (r *Repository) ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error) {
	var rows []models.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

func (r *Repository) RevokeAPIKey(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).
		Update("status", "revoked").Error
}
