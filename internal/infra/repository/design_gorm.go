package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DesignGormRepository struct {
	db *gorm.DB
}

func NewDesignGormRepository(db *gorm.DB) *DesignGormRepository {
	return &DesignGormRepository{db: db}
}

// 画像はPosition順で読み込む
func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}

// デザインと画像をまとめて作成
func (r *DesignGormRepository) Create(ctx context.Context, d *model.Design) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(d).Error; err != nil {
			return err
		}
		return createImages(tx, d)
	})
}

func (r *DesignGormRepository) FindByID(ctx context.Context, id string) (*model.Design, error) {
	var d model.Design
	err := preloadImages(r.db.WithContext(ctx)).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// 画像は読まない（価格確定用）
func (r *DesignGormRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Design, error) {
	if len(ids) == 0 {
		return []model.Design{}, nil
	}
	var items []model.Design
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return []model.Design{}, err
	}
	return items, nil
}

func (r *DesignGormRepository) List(ctx context.Context, q repo.DesignListQuery) ([]model.Design, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	filtered := func() *gorm.DB {
		q2 := r.db.WithContext(ctx).Model(&model.Design{})
		if !q.IncludeHidden {
			q2 = q2.Where("hidden = ?", false)
		}
		if q.CategoryID != "" {
			q2 = q2.Where("category_id = ?", q.CategoryID)
		}
		if q.DesignerID != "" {
			q2 = q2.Where("designer_id = ?", q.DesignerID)
		}
		return q2
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return []model.Design{}, 0, err
	}

	var items []model.Design
	offset := (q.Page - 1) * q.Limit
	err := preloadImages(filtered()).
		Order("created_at desc").
		Limit(q.Limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Design{}, 0, err
	}
	return items, total, nil
}

// 本体を更新し、画像は全削除→再作成
func (r *DesignGormRepository) Update(ctx context.Context, d *model.Design) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Design{}).
			Where("id = ?", d.ID).
			Updates(map[string]interface{}{
				"name":        d.Name,
				"description": d.Description,
				"quantity":    d.Quantity,
				"price":       d.Price,
				"category_id": d.CategoryID,
				"updated_at":  d.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		if err := tx.Where("design_id = ?", d.ID).Delete(&model.DesignImage{}).Error; err != nil {
			return err
		}
		return createImages(tx, d)
	})
}

func (r *DesignGormRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Design{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"hidden": hidden, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *DesignGormRepository) DecreaseQuantityIfEnough(ctx context.Context, id string, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Design{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func createImages(tx *gorm.DB, d *model.Design) error {
	if len(d.Images) == 0 {
		return nil
	}
	for i := range d.Images {
		if d.Images[i].ID == "" {
			d.Images[i].ID = uuid.NewString()
		}
		d.Images[i].DesignID = d.ID
		d.Images[i].Position = i
	}
	return tx.Create(&d.Images).Error
}
