package models

import "time"

type Engineer struct {
	ID       int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name     string    `json:"name" gorm:"uniqueIndex;size:20;not null"`
	Birthday time.Time `json:"birthday" gorm:"not null"`

	// Associations
	Vehicles []Vehicle `json:"vehicles,omitempty" gorm:"many2many:vehicle_engineers;"`
}

func (Engineer) TableName() string {
	return "engineers"
}

func (e *Engineer) Payload() map[string]any {
	return map[string]any{
		"data_type":   "engineer",
		"id":          e.ID,
		"name":        e.Name,
		"birth_year":  e.Birthday.Year(),
		"birth_month": int(e.Birthday.Month()),
		"birth_date":  e.Birthday.Day(),
	}
}
