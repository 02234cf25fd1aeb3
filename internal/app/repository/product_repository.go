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

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository returns the relational product repository. Tags are
// kept in the tags table and linked through product_tags.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var records []model.ProductRecord
	if err := r.db.WithContext(ctx).Preload("Tags").Order("id").Find(&records).Error; err != nil {
		logger.Error("Failed to fetch products from database", err)
		return nil, apperrors.Storage("load products", err)
	}

	products := make([]model.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].ToProduct())
	}

	logger.Debug("Fetched products from database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id int) (*model.Product, error) {
	var record model.ProductRecord
	err := r.db.WithContext(ctx).Preload("Tags").First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Product not found in database", map[string]interface{}{
				"product_id": id,
			})
			return nil, apperrors.NotFound("product")
		}
		logger.Error("Failed to find product by ID", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, apperrors.Storage("load product", err)
	}

	product := record.ToProduct()
	return &product, nil
}

func (r *productRepository) Upsert(ctx context.Context, product *model.Product) error {
	logger.Debug("Saving product in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if product.ID == 0 {
			id, err := maxProductID(tx)
			if err != nil {
				return err
			}
			product.ID = id + 1
		}

		tags, err := ensureTags(tx, model.NormalizeTags(product.Tags))
		if err != nil {
			return err
		}

		record := model.ProductRecord{ID: uint(product.ID)}
		var existing model.ProductRecord
		err = tx.Select("id").First(&existing, product.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.Name = product.Name
			record.Quantity = product.Quantity
			record.Price = product.Price
			record.Image = product.Image
			if err := tx.Omit("Tags").Create(&record).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Map updates so zero quantity/price and an empty image are written.
			if err := tx.Model(&record).Updates(map[string]interface{}{
				"name":     product.Name,
				"quantity": product.Quantity,
				"price":    product.Price,
				"image":    product.Image,
			}).Error; err != nil {
				return err
			}
		}

		association := tx.Model(&record).Association("Tags")
		if len(tags) == 0 {
			return association.Clear()
		}
		return association.Replace(tags)
	})
	if err != nil {
		logger.Error("Failed to save product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return apperrors.Storage("save product", err)
	}

	product.Tags = model.NormalizeTags(product.Tags)
	logger.Debug("Product saved in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_tags WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.ProductRecord{}, id)
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return false, apperrors.Storage("delete product", err)
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
		"removed":    removed,
	})
	return removed, nil
}

func (r *productRepository) NextID(ctx context.Context) (int, error) {
	id, err := maxProductID(r.db.WithContext(ctx))
	if err != nil {
		return 0, apperrors.Storage("next product id", err)
	}
	return id + 1, nil
}

// ReconcileTagRemoval drops every product_tags row for tag in one statement.
func (r *productRepository) ReconcileTagRemoval(ctx context.Context, tag string) (int, error) {
	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Tag
		err := tx.Where("name = ?", tag).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result := tx.Exec("DELETE FROM product_tags WHERE tag_id = ?", row.ID)
		updated = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to remove tag from products", err, map[string]interface{}{
			"tag": tag,
		})
		return 0, apperrors.Storage("remove tag from products", err)
	}
	return int(updated), nil
}

// ReconcileTagRename repoints product_tags rows from one tag to another.
// Products that already carry the target keep a single link.
func (r *productRepository) ReconcileTagRename(ctx context.Context, from, to string) (int, error) {
	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source model.Tag
		err := tx.Where("name = ?", from).First(&source).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		targets, err := ensureTags(tx, []string{to})
		if err != nil {
			return err
		}
		target := targets[0]

		if err := tx.Table("product_tags").Where("tag_id = ?", source.ID).Count(&updated).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"UPDATE product_tags SET tag_id = ? WHERE tag_id = ? AND product_id NOT IN (SELECT product_id FROM product_tags WHERE tag_id = ?)",
			target.ID, source.ID, target.ID,
		).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM product_tags WHERE tag_id = ?", source.ID).Error
	})
	if err != nil {
		logger.Error("Failed to rename tag on products", err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
		return 0, apperrors.Storage("rename tag on products", err)
	}
	return int(updated), nil
}

func maxProductID(tx *gorm.DB) (int, error) {
	var id int
	err := tx.Model(&model.ProductRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&id).Error
	return id, err
}

// ensureTags returns the tag rows for names, inserting the missing ones.
func ensureTags(tx *gorm.DB, names []string) ([]model.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	for _, name := range names {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Tag{Name: name}).Error; err != nil {
			return nil, err
		}
	}
	var tags []model.Tag
	if err := tx.Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
