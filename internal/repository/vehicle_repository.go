package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleethub/internal/models"

	"gorm.io/gorm"
)

type VehicleRepo struct {
	db *gorm.DB
}

func NewVehicleRepo(db *gorm.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

// Add creates a vehicle. When the model already exists the stored quantity
// is bumped by the requested amount instead and (nil, nil) is returned so
// the caller can report the merge.
func (r *VehicleRepo) Add(ctx context.Context, model string, quantity int, price float64, manufactured time.Time) (*models.Vehicle, error) {
	existing, err := r.GetByModel(ctx, model)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		for i := range existing {
			newQuantity := existing[i].Quantity + quantity
			if err := r.db.WithContext(ctx).Model(&existing[i]).
				Updates(map[string]any{
					"quantity": newQuantity,
					"in_stock": newQuantity > 0,
				}).Error; err != nil {
				return nil, fmt.Errorf("bump quantity for %s: %w", model, err)
			}
		}
		return nil, nil
	}

	v := &models.Vehicle{
		Model:           model,
		Quantity:        quantity,
		InStock:         quantity > 0,
		Price:           price,
		ManufactureDate: manufactured,
	}
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	return v, nil
}

func (r *VehicleRepo) GetAll(ctx context.Context) ([]models.Vehicle, error) {
	var list []models.Vehicle
	if err := r.db.WithContext(ctx).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID returns (nil, nil) when no row exists.
func (r *VehicleRepo) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *VehicleRepo) GetByModel(ctx context.Context, model string) ([]models.Vehicle, error) {
	var list []models.Vehicle
	if err := r.db.WithContext(ctx).Where("model = ?", model).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteByModel removes every vehicle of the model together with its join
// rows. Returns false when no row matched.
func (r *VehicleRepo) DeleteByModel(ctx context.Context, model string) (bool, error) {
	cars, err := r.GetByModel(ctx, model)
	if err != nil {
		return false, err
	}
	if len(cars) == 0 {
		return false, nil
	}
	for i := range cars {
		if err := r.db.WithContext(ctx).Model(&cars[i]).Association("Engineers").Clear(); err != nil {
			return false, fmt.Errorf("clear engineer assignments: %w", err)
		}
		if err := r.db.WithContext(ctx).Delete(&cars[i]).Error; err != nil {
			return false, fmt.Errorf("delete vehicle: %w", err)
		}
	}
	return true, nil
}

// VehicleUpdate carries the optional fields of a vehicle update; nil means
// leave the stored value alone.
type VehicleUpdate struct {
	Model        *string
	Quantity     *int
	Price        *float64
	Manufactured *time.Time
}

func (r *VehicleRepo) Update(ctx context.Context, id int64, upd VehicleUpdate) (*models.Vehicle, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	fields := map[string]any{}
	if upd.Model != nil {
		fields["model"] = *upd.Model
	}
	if upd.Quantity != nil {
		fields["quantity"] = *upd.Quantity
		fields["in_stock"] = *upd.Quantity > 0
	}
	if upd.Price != nil {
		fields["price"] = *upd.Price
	}
	if upd.Manufactured != nil {
		fields["manufacture_date"] = *upd.Manufactured
	}
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(v).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("update vehicle %d: %w", id, err)
		}
	}
	return v, nil
}

// AppendEngineer links one more engineer to the vehicle. Assignments made
// during an add conversation are written one at a time, not batched.
func (r *VehicleRepo) AppendEngineer(ctx context.Context, v *models.Vehicle, e *models.Engineer) error {
	if err := r.db.WithContext(ctx).Model(v).Association("Engineers").Append(e); err != nil {
		return fmt.Errorf("assign engineer %s to %s: %w", e.Name, v.Model, err)
	}
	return nil
}

// ReplaceEngineers swaps the vehicle's full assignment set.
func (r *VehicleRepo) ReplaceEngineers(ctx context.Context, v *models.Vehicle, engineers []models.Engineer) error {
	ptrs := make([]*models.Engineer, len(engineers))
	for i := range engineers {
		ptrs[i] = &engineers[i]
	}
	if err := r.db.WithContext(ctx).Model(v).Association("Engineers").Replace(ptrs); err != nil {
		return fmt.Errorf("replace engineers on %s: %w", v.Model, err)
	}
	return nil
}

// AssignedEngineers lists the engineers linked to any vehicle of the model.
func (r *VehicleRepo) AssignedEngineers(ctx context.Context, model string) ([]models.Engineer, error) {
	cars, err := r.GetByModel(ctx, model)
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	var out []models.Engineer
	for i := range cars {
		var engins []models.Engineer
		if err := r.db.WithContext(ctx).Model(&cars[i]).Association("Engineers").Find(&engins); err != nil {
			return nil, err
		}
		for _, e := range engins {
			if !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e)
			}
		}
	}
	return out, nil
}
