package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTenantNotFound = errors.New("tenant not found")

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetTenant returns the account settings for id.
func (r *TenantRepository) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// Upsert writes the tenant's settings, replacing any existing row.
func (r *TenantRepository) Upsert(ctx context.Context, t *models.Tenant) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "timezone", "delivery_hour", "target_length_minutes", "updated_at"}),
	}).Create(t).Error
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}
