package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fleethub/internal/models"
)

// testDB opens a throwaway file-backed store. A file, not ":memory:",
// because the connection pool may open more than one connection and each
// in-memory connection is its own database.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Vehicle{},
		&models.Engineer{},
		&models.Laptop{},
		&models.ContactDetails{},
	))
	return db
}

func TestVehicleAddAndDuplicateMerge(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	vehicles := NewVehicleRepo(db)

	car, err := vehicles.Add(ctx, "Civic", 3, 23000, date(2019, time.October, 5))
	require.NoError(t, err)
	require.NotNil(t, car)
	assert.Equal(t, "Civic", car.Model)
	assert.True(t, car.InStock)

	// adding the same model again merges quantities instead of creating
	dup, err := vehicles.Add(ctx, "Civic", 2, 23000, date(2019, time.October, 5))
	require.NoError(t, err)
	assert.Nil(t, dup)

	rows, err := vehicles.GetByModel(ctx, "Civic")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
}

func TestVehicleZeroQuantityIsOutOfStock(t *testing.T) {
	ctx := context.Background()
	vehicles := NewVehicleRepo(testDB(t))

	car, err := vehicles.Add(ctx, "Bronco", 0, 26820, date(2018, time.December, 20))
	require.NoError(t, err)
	require.NotNil(t, car)
	assert.False(t, car.InStock)
}

func TestVehicleDeleteByModel(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	vehicles := NewVehicleRepo(db)

	_, err := vehicles.Add(ctx, "Fusion", 3, 23170, date(2019, time.October, 5))
	require.NoError(t, err)

	deleted, err := vehicles.DeleteByModel(ctx, "Fusion")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = vehicles.DeleteByModel(ctx, "Fusion")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestVehicleUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	vehicles := NewVehicleRepo(testDB(t))

	car, err := vehicles.Add(ctx, "Mustang", 10, 73995, date(2019, time.March, 30))
	require.NoError(t, err)

	newPrice := 69995.0
	updated, err := vehicles.Update(ctx, car.ID, VehicleUpdate{Price: &newPrice})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 69995.0, updated.Price)
	assert.Equal(t, "Mustang", updated.Model)
	assert.Equal(t, 10, updated.Quantity)
}

func TestEngineerDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	engineers := NewEngineerRepo(testDB(t))

	e, err := engineers.Add(ctx, "Cameron Foss", date(1998, time.December, 1))
	require.NoError(t, err)
	require.NotNil(t, e)

	dup, err := engineers.Add(ctx, "Cameron Foss", date(1990, time.January, 1))
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestEngineerDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	vehicles := NewVehicleRepo(db)
	engineers := NewEngineerRepo(db)
	laptops := NewLaptopRepo(db)
	contacts := NewContactRepo(db)

	car, err := vehicles.Add(ctx, "Explorer", 1, 32765, date(2019, time.June, 15))
	require.NoError(t, err)
	e, err := engineers.Add(ctx, "Prerna Sancheti", date(1992, time.August, 13))
	require.NoError(t, err)
	require.NoError(t, engineers.AssignVehicle(ctx, e, car))
	_, err = contacts.Add(ctx, "555-0100", "1 Main St", e)
	require.NoError(t, err)
	laptop, err := laptops.Add(ctx, "Surface Pro 7", date(2018, time.December, 10), e)
	require.NoError(t, err)
	require.NotNil(t, laptop)

	deleted, err := engineers.DeleteByName(ctx, "Prerna Sancheti")
	require.NoError(t, err)
	require.True(t, deleted)

	// contact rows are gone
	rows, err := contacts.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// the laptop survives without a loaner
	l, err := laptops.GetByID(ctx, laptop.ID)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Nil(t, l.EngineerID)

	// the join rows are gone
	engins, err := vehicles.AssignedEngineers(ctx, "Explorer")
	require.NoError(t, err)
	assert.Empty(t, engins)
}

func TestLaptopDuplicatePerOwner(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engineers := NewEngineerRepo(db)
	laptops := NewLaptopRepo(db)

	e, err := engineers.Add(ctx, "Cameron Foss", date(1998, time.December, 1))
	require.NoError(t, err)

	l, err := laptops.Add(ctx, "Macbook Air", date(2016, time.September, 1), e)
	require.NoError(t, err)
	require.NotNil(t, l)

	dup, err := laptops.Add(ctx, "Macbook Air", date(2017, time.September, 1), e)
	require.NoError(t, err)
	assert.Nil(t, dup)

	// the same model with no owner is not a duplicate
	free, err := laptops.Add(ctx, "Macbook Air", date(2017, time.September, 1), nil)
	require.NoError(t, err)
	assert.NotNil(t, free)
}

func TestLaptopUpdateUnassignsOwner(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engineers := NewEngineerRepo(db)
	laptops := NewLaptopRepo(db)

	e, err := engineers.Add(ctx, "Jaivenkatram Harirao", date(1990, time.March, 26))
	require.NoError(t, err)
	l, err := laptops.Add(ctx, "Dell Latitude", date(2017, time.July, 11), e)
	require.NoError(t, err)

	noOwner := ""
	updated, err := laptops.Update(ctx, l.ID, LaptopUpdate{EngineerName: &noOwner})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Nil(t, updated.EngineerID)

	// an unresolvable name leaves the loaner untouched
	ghost := "Nobody"
	owner := e.Name
	_, err = laptops.Update(ctx, l.ID, LaptopUpdate{EngineerName: &owner})
	require.NoError(t, err)
	updated, err = laptops.Update(ctx, l.ID, LaptopUpdate{EngineerName: &ghost})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.EngineerID)
	assert.Equal(t, e.ID, *updated.EngineerID)
}

func TestContactDuplicatePhoneRejected(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	engineers := NewEngineerRepo(db)
	contacts := NewContactRepo(db)

	e, err := engineers.Add(ctx, "Cameron Foss", date(1998, time.December, 1))
	require.NoError(t, err)

	c, err := contacts.Add(ctx, "555-0100", "1 Main St", e)
	require.NoError(t, err)
	require.NotNil(t, c)

	dup, err := contacts.Add(ctx, "555-0100", "2 Other St", e)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestSeedAndReset(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	empty, err := IsEmpty(ctx, db)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, Seed(ctx, db))

	empty, err = IsEmpty(ctx, db)
	require.NoError(t, err)
	assert.False(t, empty)

	vehicles := NewVehicleRepo(db)
	cars, err := vehicles.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cars, 4)

	engineers := NewEngineerRepo(db)
	engins, err := engineers.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, engins, 3)

	// mutate, then reset back to the seed state
	_, err = vehicles.Add(ctx, "Civic", 1, 20000, date(2020, time.January, 1))
	require.NoError(t, err)
	require.NoError(t, Reset(ctx, db))

	cars, err = vehicles.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cars, 4)

	// seed assignments are restored too
	cameron, err := engineers.GetByName(ctx, "Cameron Foss")
	require.NoError(t, err)
	require.NotNil(t, cameron)
	laptop, err := NewLaptopRepo(db).GetByOwner(ctx, "Cameron Foss")
	require.NoError(t, err)
	require.NotNil(t, laptop)
	assert.Equal(t, "Macbook Air", laptop.Model)
}
