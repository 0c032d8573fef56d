package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleethub/internal/models"

	"gorm.io/gorm"
)

type EngineerRepo struct {
	db *gorm.DB
}

func NewEngineerRepo(db *gorm.DB) *EngineerRepo {
	return &EngineerRepo{db: db}
}

// Add creates an engineer. The name is the natural key; (nil, nil) signals
// a duplicate.
func (r *EngineerRepo) Add(ctx context.Context, name string, birthday time.Time) (*models.Engineer, error) {
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}
	e := &models.Engineer{Name: name, Birthday: birthday}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, fmt.Errorf("create engineer: %w", err)
	}
	return e, nil
}

func (r *EngineerRepo) GetAll(ctx context.Context) ([]models.Engineer, error) {
	var list []models.Engineer
	if err := r.db.WithContext(ctx).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *EngineerRepo) GetByID(ctx context.Context, id int64) (*models.Engineer, error) {
	var e models.Engineer
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *EngineerRepo) GetByName(ctx context.Context, name string) (*models.Engineer, error) {
	var e models.Engineer
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// DeleteByName removes the engineer plus everything hanging off them:
// contact details rows, vehicle assignments, and the loaner link on their
// laptop (the laptop itself survives unowned).
func (r *EngineerRepo) DeleteByName(ctx context.Context, name string) (bool, error) {
	e, err := r.GetByName(ctx, name)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}

	if err := r.db.WithContext(ctx).
		Where("engineer_id = ?", e.ID).
		Delete(&models.ContactDetails{}).Error; err != nil {
		return false, fmt.Errorf("delete contact details of %s: %w", name, err)
	}
	if err := r.db.WithContext(ctx).Model(e).Association("Vehicles").Clear(); err != nil {
		return false, fmt.Errorf("clear vehicle assignments of %s: %w", name, err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Laptop{}).
		Where("engineer_id = ?", e.ID).
		Update("engineer_id", nil).Error; err != nil {
		return false, fmt.Errorf("unlink laptop of %s: %w", name, err)
	}
	if err := r.db.WithContext(ctx).Delete(e).Error; err != nil {
		return false, fmt.Errorf("delete engineer %s: %w", name, err)
	}
	return true, nil
}

type EngineerUpdate struct {
	Name     *string
	Birthday *time.Time
}

func (r *EngineerRepo) Update(ctx context.Context, id int64, upd EngineerUpdate) (*models.Engineer, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	fields := map[string]any{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Birthday != nil {
		fields["birthday"] = *upd.Birthday
	}
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(e).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("update engineer %d: %w", id, err)
		}
	}
	return e, nil
}

// AssignedVehicles lists the vehicles the engineer is currently linked to.
func (r *EngineerRepo) AssignedVehicles(ctx context.Context, e *models.Engineer) ([]models.Vehicle, error) {
	var cars []models.Vehicle
	if err := r.db.WithContext(ctx).Model(e).Association("Vehicles").Find(&cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// AssignVehicle links the engineer to one vehicle.
func (r *EngineerRepo) AssignVehicle(ctx context.Context, e *models.Engineer, v *models.Vehicle) error {
	if err := r.db.WithContext(ctx).Model(e).Association("Vehicles").Append(v); err != nil {
		return fmt.Errorf("assign %s to %s: %w", e.Name, v.Model, err)
	}
	return nil
}

// UnassignVehicle removes one vehicle link from the engineer.
func (r *EngineerRepo) UnassignVehicle(ctx context.Context, e *models.Engineer, v *models.Vehicle) error {
	if err := r.db.WithContext(ctx).Model(e).Association("Vehicles").Delete(v); err != nil {
		return fmt.Errorf("unassign %s from %s: %w", e.Name, v.Model, err)
	}
	return nil
}
