package models

import "time"

type Laptop struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Model      string    `json:"model" gorm:"size:20;not null"`
	DateLoaned time.Time `json:"date_loaned" gorm:"not null"`
	EngineerID *int64    `json:"engineer_id,omitempty" gorm:"index"`

	// Associations
	Engineer *Engineer `json:"engineer,omitempty" gorm:"foreignKey:EngineerID"`
}

func (Laptop) TableName() string {
	return "laptops"
}

func (l *Laptop) Payload() map[string]any {
	// a laptop without a loaner reports its engineer as the literal "None"
	name := "None"
	if l.Engineer != nil {
		name = l.Engineer.Name
	}
	return map[string]any{
		"data_type":  "laptop",
		"id":         l.ID,
		"model":      l.Model,
		"loan_year":  l.DateLoaned.Year(),
		"loan_month": int(l.DateLoaned.Month()),
		"loan_date":  l.DateLoaned.Day(),
		"engineer":   name,
	}
}
