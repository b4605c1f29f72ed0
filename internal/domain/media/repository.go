package media

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"portfolio/internal/pkg/utils"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Media) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Media, error) {
	var m Media
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context) ([]*Media, error) {
	var items []*Media
	err := r.db.WithContext(ctx).
		Omit("data").
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// ClaimProcessing is a conditional update: zero rows affected means the row
// is missing or not pending, so this run must not start.
func (r *repository) ClaimProcessing(ctx context.Context, id string) (*Media, error) {
	res := r.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", StatusProcessing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotClaimable
	}
	return r.GetByID(ctx, id)
}

func (r *repository) MarkCompleted(ctx context.Context, m *Media) error {
	res := r.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ? AND status = ?", m.ID, StatusProcessing).
		Updates(map[string]any{
			"status":          StatusCompleted,
			"fail_reason":     "",
			"data":            nil, // raw upload no longer needed
			"original_key":    m.OriginalKey,
			"medium_key":      m.MediumKey,
			"thumb_key":       m.ThumbKey,
			"original_url":    m.OriginalURL,
			"medium_url":      m.MediumURL,
			"thumb_url":       m.ThumbURL,
			"original_width":  m.OriginalWidth,
			"original_height": m.OriginalHeight,
			"medium_width":    m.MediumWidth,
			"medium_height":   m.MediumHeight,
			"thumb_width":     m.ThumbWidth,
			"thumb_height":    m.ThumbHeight,
			"format":          m.Format,
			"filename":        m.Filename,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(map[string]any{
			"status":      StatusFailed,
			"fail_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (r *repository) ResetForRetry(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ? AND status = ?", id, StatusFailed).
		Updates(map[string]any{
			"status":      StatusPending,
			"fail_reason": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		m, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == StatusCompleted {
			return ErrCompleted
		}
		return ErrNotRetryable
	}
	return nil
}

func (r *repository) UpdateMetadata(ctx context.Context, id string, meta Metadata) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&Media{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       meta.Title,
			"description": meta.Description,
			"alt_text":    meta.AltText,
			"tags":        utils.TagsToString(meta.Tags),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Media{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
