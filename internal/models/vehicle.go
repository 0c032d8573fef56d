package models

import "time"

type Vehicle struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Model           string    `json:"model" gorm:"uniqueIndex;size:20;not null"`
	InStock         bool      `json:"in_stock"`
	Quantity        int       `json:"quantity" gorm:"not null"`
	Price           float64   `json:"price" gorm:"not null"`
	ManufactureDate time.Time `json:"manufacture_date" gorm:"not null"`

	// Associations
	Engineers []Engineer `json:"engineers,omitempty" gorm:"many2many:vehicle_engineers;"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// Payload is the wire shape of a vehicle, date split into the three
// integer fields clients send it as.
func (v *Vehicle) Payload() map[string]any {
	return map[string]any{
		"data_type":         "vehicle",
		"id":                v.ID,
		"model":             v.Model,
		"quantity":          v.Quantity,
		"price":             v.Price,
		"manufacture_year":  v.ManufactureDate.Year(),
		"manufacture_month": int(v.ManufactureDate.Month()),
		"manufacture_date":  v.ManufactureDate.Day(),
	}
}
