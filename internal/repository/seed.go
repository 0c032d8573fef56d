package repository

import (
	"context"
	"fmt"
	"time"

	"fleethub/internal/models"

	"gorm.io/gorm"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Seed inserts the fixed demo inventory: four vehicles, three engineers,
// their assignments, contact details, and laptops.
func Seed(ctx context.Context, db *gorm.DB) error {
	fusion := models.Vehicle{Model: "Fusion", Quantity: 3, InStock: true, Price: 23170, ManufactureDate: date(2019, 10, 5)}
	explorer := models.Vehicle{Model: "Explorer", Quantity: 1, InStock: true, Price: 32765, ManufactureDate: date(2019, 6, 15)}
	bronco := models.Vehicle{Model: "Bronco", Quantity: 0, InStock: false, Price: 26820, ManufactureDate: date(2018, 12, 20)}
	mustang := models.Vehicle{Model: "Mustang Shelby GT500", Quantity: 10, InStock: true, Price: 73995, ManufactureDate: date(2019, 3, 30)}

	cameron := models.Engineer{Name: "Cameron Foss", Birthday: date(1998, 12, 1)}
	prerna := models.Engineer{Name: "Prerna Sancheti", Birthday: date(1992, 8, 13)}
	jaiven := models.Engineer{Name: "Jaivenkatram Harirao", Birthday: date(1990, 3, 26)}

	fusion.Engineers = []models.Engineer{prerna, jaiven}
	explorer.Engineers = []models.Engineer{cameron, prerna}
	bronco.Engineers = []models.Engineer{jaiven}
	mustang.Engineers = []models.Engineer{cameron, prerna, jaiven}

	tx := db.WithContext(ctx)
	for _, v := range []*models.Vehicle{&fusion, &explorer, &bronco, &mustang} {
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.Model, err)
		}
	}

	// the engineers were created through the vehicle associations; fetch
	// them back so the foreign keys below point at real rows
	byName := map[string]*models.Engineer{}
	for _, name := range []string{"Cameron Foss", "Prerna Sancheti", "Jaivenkatram Harirao"} {
		var e models.Engineer
		if err := tx.Where("name = ?", name).First(&e).Error; err != nil {
			return fmt.Errorf("seed lookup engineer %s: %w", name, err)
		}
		byName[name] = &e
	}

	contacts := []models.ContactDetails{
		{PhoneNumber: "989-906-0292", Address: "302 W Davis Ave Ann Arbor MI", EngineerID: &byName["Cameron Foss"].ID},
		{PhoneNumber: "555-999-9999", Address: "1123 Example St", EngineerID: &byName["Prerna Sancheti"].ID},
		{PhoneNumber: "555-777-7777", Address: "432 Example Work Address", EngineerID: &byName["Prerna Sancheti"].ID},
		{PhoneNumber: "555-333-3333", Address: "888 Another Example St", EngineerID: &byName["Jaivenkatram Harirao"].ID},
	}
	for i := range contacts {
		if err := tx.Create(&contacts[i]).Error; err != nil {
			return fmt.Errorf("seed contact details: %w", err)
		}
	}

	laptops := []models.Laptop{
		{Model: "Macbook Air", DateLoaned: date(2016, 9, 1), EngineerID: &byName["Cameron Foss"].ID},
		{Model: "Surface Pro 7", DateLoaned: date(2018, 12, 10), EngineerID: &byName["Prerna Sancheti"].ID},
		{Model: "Dell Latitude", DateLoaned: date(2017, 7, 11), EngineerID: &byName["Jaivenkatram Harirao"].ID},
	}
	for i := range laptops {
		if err := tx.Create(&laptops[i]).Error; err != nil {
			return fmt.Errorf("seed laptop: %w", err)
		}
	}

	return nil
}

// Reset drops everything and reinserts the seed data. Reachable by any
// client through the reset action; destructive by design.
func Reset(ctx context.Context, db *gorm.DB) error {
	migrator := db.WithContext(ctx).Migrator()
	if err := migrator.DropTable(
		"vehicle_engineers",
		&models.ContactDetails{},
		&models.Laptop{},
		&models.Vehicle{},
		&models.Engineer{},
	); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Vehicle{},
		&models.Engineer{},
		&models.Laptop{},
		&models.ContactDetails{},
	); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}
	return Seed(ctx, db)
}

// IsEmpty reports whether the store has no vehicles yet, used to decide
// whether to seed at startup.
func IsEmpty(ctx context.Context, db *gorm.DB) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Vehicle{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
