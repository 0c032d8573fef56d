package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleethub/internal/models"

	"gorm.io/gorm"
)

type LaptopRepo struct {
	db *gorm.DB
}

func NewLaptopRepo(db *gorm.DB) *LaptopRepo {
	return &LaptopRepo{db: db}
}

// Add creates a laptop, optionally loaned to an engineer. A laptop with
// the same model already loaned to the same engineer is a duplicate and
// yields (nil, nil).
func (r *LaptopRepo) Add(ctx context.Context, model string, loaned time.Time, engineer *models.Engineer) (*models.Laptop, error) {
	if engineer != nil {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Laptop{}).
			Where("model = ? AND engineer_id = ?", model, engineer.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, nil
		}
	}

	l := &models.Laptop{Model: model, DateLoaned: loaned}
	if engineer != nil {
		l.EngineerID = &engineer.ID
		l.Engineer = engineer
	}
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, fmt.Errorf("create laptop: %w", err)
	}
	return l, nil
}

func (r *LaptopRepo) GetAll(ctx context.Context) ([]models.Laptop, error) {
	var list []models.Laptop
	if err := r.db.WithContext(ctx).Preload("Engineer").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *LaptopRepo) GetByID(ctx context.Context, id int64) (*models.Laptop, error) {
	var l models.Laptop
	if err := r.db.WithContext(ctx).Preload("Engineer").First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *LaptopRepo) GetByModel(ctx context.Context, model string) ([]models.Laptop, error) {
	var list []models.Laptop
	if err := r.db.WithContext(ctx).Preload("Engineer").
		Where("model = ?", model).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetByOwner returns the laptop loaned to the named engineer, nil when the
// engineer does not exist or has none.
func (r *LaptopRepo) GetByOwner(ctx context.Context, engineerName string) (*models.Laptop, error) {
	var e models.Engineer
	if err := r.db.WithContext(ctx).Where("name = ?", engineerName).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var l models.Laptop
	if err := r.db.WithContext(ctx).Preload("Engineer").
		Where("engineer_id = ?", e.ID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *LaptopRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if l == nil {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Delete(l).Error; err != nil {
		return false, fmt.Errorf("delete laptop %d: %w", id, err)
	}
	return true, nil
}

func (r *LaptopRepo) DeleteByOwner(ctx context.Context, engineerName string) (bool, error) {
	l, err := r.GetByOwner(ctx, engineerName)
	if err != nil {
		return false, err
	}
	if l == nil {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Delete(l).Error; err != nil {
		return false, fmt.Errorf("delete laptop of %s: %w", engineerName, err)
	}
	return true, nil
}

// LaptopUpdate carries the optional fields of a laptop update. An
// EngineerName of "" unassigns the loaner; a name that does not resolve
// leaves the loaner unchanged.
type LaptopUpdate struct {
	Model        *string
	DateLoaned   *time.Time
	EngineerName *string
}

func (r *LaptopRepo) Update(ctx context.Context, id int64, upd LaptopUpdate) (*models.Laptop, error) {
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, nil
	}

	fields := map[string]any{}
	if upd.Model != nil {
		fields["model"] = *upd.Model
	}
	if upd.DateLoaned != nil {
		fields["date_loaned"] = *upd.DateLoaned
	}
	if upd.EngineerName != nil {
		if *upd.EngineerName == "" {
			fields["engineer_id"] = nil
		} else {
			var e models.Engineer
			err := r.db.WithContext(ctx).Where("name = ?", *upd.EngineerName).First(&e).Error
			if err == nil {
				fields["engineer_id"] = e.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(l).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("update laptop %d: %w", id, err)
		}
	}
	return r.GetByID(ctx, id)
}
