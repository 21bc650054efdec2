package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"gorm.io/gorm"
)

type InputRepository struct {
	db *gorm.DB
}

func NewInputRepository(db *gorm.DB) *InputRepository {
	return &InputRepository{db: db}
}

// OwnersWithUnprocessed lists every owner that has input no ready job has
// consumed yet.
func (r *InputRepository) OwnersWithUnprocessed(ctx context.Context) ([]string, error) {
	var owners []string
	if err := r.db.WithContext(ctx).Model(&models.RawInput{}).
		Where("processed_at IS NULL").
		Distinct("owner_id").
		Order("owner_id ASC").
		Pluck("owner_id", &owners).Error; err != nil {
		return nil, fmt.Errorf("list owners with input: %w", err)
	}
	return owners, nil
}

// ListUnprocessed returns the owner's unprocessed input, oldest first.
func (r *InputRepository) ListUnprocessed(ctx context.Context, ownerID string) ([]models.RawInput, error) {
	var inputs []models.RawInput
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND processed_at IS NULL", ownerID).
		Order("received_at ASC, id ASC").
		Find(&inputs).Error; err != nil {
		return nil, fmt.Errorf("list unprocessed input: %w", err)
	}
	return inputs, nil
}

// Add stores a newly ingested input.
func (r *InputRepository) Add(ctx context.Context, in *models.RawInput) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.ReceivedAt.IsZero() {
		return fmt.Errorf("add input: received_at is required")
	}
	in.ReceivedAt = in.ReceivedAt.UTC()
	if err := r.db.WithContext(ctx).Create(in).Error; err != nil {
		return fmt.Errorf("add input: %w", err)
	}
	return nil
}
