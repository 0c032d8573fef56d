package models

type ContactDetails struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	PhoneNumber string `json:"phone_number" gorm:"uniqueIndex;size:12;not null"`
	Address     string `json:"address" gorm:"size:100"`
	EngineerID  *int64 `json:"engineer_id,omitempty" gorm:"index"`

	// Associations
	Engineer *Engineer `json:"engineer,omitempty" gorm:"foreignKey:EngineerID"`
}

func (ContactDetails) TableName() string {
	return "contact_details"
}

func (c *ContactDetails) Payload() map[string]any {
	name := "None"
	if c.Engineer != nil {
		name = c.Engineer.Name
	}
	return map[string]any{
		"data_type":    "contact_details",
		"id":           c.ID,
		"phone_number": c.PhoneNumber,
		"address":      c.Address,
		"engineer":     name,
	}
}
