package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"parcelscope/server/config"
	"parcelscope/server/internal/models"
)

// ErrParcelNotFound is returned when no parcel has the requested id
var ErrParcelNotFound = errors.New("parcel not found")

// IsPermanent reports whether a write failed in a way that retrying the
// same batch cannot fix
func IsPermanent(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrConstraint, sqlite3.ErrMismatch, sqlite3.ErrTooBig, sqlite3.ErrReadonly:
		return true
	}
	return false
}

type Database struct {
	db *gorm.DB
}

// CityStats aggregates the stored parcels of one city
type CityStats struct {
	City             string  `json:"city"`
	TotalParcels     int     `json:"total_parcels"`
	AvailableParcels int     `json:"available_parcels"`
	AveragePrice     float64 `json:"average_price"`
	PricePerSqm      float64 `json:"price_per_sqm"`
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{db: db}, nil
}

// NewTestDB opens a private in-memory database
func NewTestDB() (*gorm.DB, error) {
	db, err := open(":memory:")
	if err != nil {
		return nil, err
	}

	// every pooled connection would otherwise see its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Wrap builds a Database around an existing connection
func Wrap(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertParcels inserts the batch, replacing stored parcels with the same id
func UpsertParcels(tx *gorm.DB, parcels []*models.Parcel) error {
	if len(parcels) == 0 {
		return nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&parcels).Error
	if err != nil {
		return fmt.Errorf("failed to upsert parcels: %w", err)
	}
	return nil
}

func (d *Database) GetParcel(id string) (*models.Parcel, error) {
	var p models.Parcel
	err := d.db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParcelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parcel %s: %w", id, err)
	}
	return &p, nil
}

// ListParcels returns the parcels of a city, or every parcel when city is
// empty, oldest first. City names match after normalization.
func (d *Database) ListParcels(city string) ([]models.Parcel, error) {
	var all []models.Parcel
	if err := d.db.Order("created_at, id").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	if city == "" {
		return all, nil
	}

	key := config.NormalizeCity(city)
	parcels := make([]models.Parcel, 0, len(all))
	for _, p := range all {
		if config.NormalizeCity(p.City) == key {
			parcels = append(parcels, p)
		}
	}
	return parcels, nil
}

// GetCityStats aggregates counts and mean prices for the stored parcels of
// a city. Cities match the same way as in ListParcels.
func (d *Database) GetCityStats(city string) (CityStats, error) {
	stats := CityStats{City: city}

	parcels, err := d.ListParcels(city)
	if err != nil {
		return stats, fmt.Errorf("failed to get stats for %s: %w", city, err)
	}

	var priceSum, psqmSum float64
	var priced, sized int
	for _, p := range parcels {
		stats.TotalParcels++
		if p.Status == "" || p.Status == models.StatusAvailable {
			stats.AvailableParcels++
		}
		if p.TotalPrice > 0 {
			priceSum += p.TotalPrice
			priced++
		}
		if psqm, ok := p.PricePerSqm(); ok {
			psqmSum += psqm
			sized++
		}
	}

	if priced > 0 {
		stats.AveragePrice = math.Round(priceSum / float64(priced))
	}
	if sized > 0 {
		stats.PricePerSqm = math.Round(psqmSum / float64(sized))
	}
	return stats, nil
}
