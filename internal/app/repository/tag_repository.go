package repository

import (
	"context"
	"errors"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) FindAll(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Tag{}).Order("id").Pluck("name", &names).Error; err != nil {
		logger.Error("Failed to fetch tags", err)
		return nil, apperrors.Storage("load tags", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *tagRepository) Add(ctx context.Context, name string) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Tag{Name: name})
	if result.Error != nil {
		logger.Error("Failed to create tag", result.Error, map[string]interface{}{
			"tag": name,
		})
		return false, apperrors.Storage("add tag", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *tagRepository) Remove(ctx context.Context, name string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag model.Tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM product_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&tag).Error; err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete tag", err, map[string]interface{}{
			"tag": name,
		})
		return false, apperrors.Storage("remove tag", err)
	}
	return removed, nil
}

func (r *tagRepository) ReplaceAll(ctx context.Context, names []string) error {
	names = dedupeOrdered(names)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&model.Tag{})
		if len(names) > 0 {
			stale = stale.Where("name NOT IN ?", names)
		}
		var staleIDs []uint
		if err := stale.Pluck("id", &staleIDs).Error; err != nil {
			return err
		}
		if len(staleIDs) > 0 {
			if err := tx.Exec("DELETE FROM product_tags WHERE tag_id IN ?", staleIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Tag{}, staleIDs).Error; err != nil {
				return err
			}
		}
		for _, name := range names {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Tag{Name: name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to replace tags", err, map[string]interface{}{
			"count": len(names),
		})
		return apperrors.Storage("replace tags", err)
	}
	return nil
}
