package repository

import (
	"context"
	"errors"
	"fmt"

	"fleethub/internal/models"

	"gorm.io/gorm"
)

type ContactRepo struct {
	db *gorm.DB
}

func NewContactRepo(db *gorm.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// Add creates contact details for an engineer. The phone number is unique;
// (nil, nil) signals a duplicate.
func (r *ContactRepo) Add(ctx context.Context, phoneNumber, address string, engineer *models.Engineer) (*models.ContactDetails, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ContactDetails{}).
		Where("phone_number = ?", phoneNumber).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	c := &models.ContactDetails{
		PhoneNumber: phoneNumber,
		Address:     address,
		EngineerID:  &engineer.ID,
		Engineer:    engineer,
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create contact details: %w", err)
	}
	return c, nil
}

func (r *ContactRepo) GetAll(ctx context.Context) ([]models.ContactDetails, error) {
	var list []models.ContactDetails
	if err := r.db.WithContext(ctx).Preload("Engineer").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ContactRepo) GetByID(ctx context.Context, id int64) (*models.ContactDetails, error) {
	var c models.ContactDetails
	if err := r.db.WithContext(ctx).Preload("Engineer").First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepo) GetByEngineerID(ctx context.Context, engineerID int64) ([]models.ContactDetails, error) {
	var list []models.ContactDetails
	if err := r.db.WithContext(ctx).Preload("Engineer").
		Where("engineer_id = ?", engineerID).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ContactRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Delete(c).Error; err != nil {
		return false, fmt.Errorf("delete contact details %d: %w", id, err)
	}
	return true, nil
}

// DeleteByEngineerID removes every contact row of the engineer. Returns
// false when there was nothing to delete.
func (r *ContactRepo) DeleteByEngineerID(ctx context.Context, engineerID int64) (bool, error) {
	list, err := r.GetByEngineerID(ctx, engineerID)
	if err != nil {
		return false, err
	}
	if len(list) == 0 {
		return false, nil
	}
	if err := r.db.WithContext(ctx).
		Where("engineer_id = ?", engineerID).
		Delete(&models.ContactDetails{}).Error; err != nil {
		return false, fmt.Errorf("delete contact details of engineer %d: %w", engineerID, err)
	}
	return true, nil
}
