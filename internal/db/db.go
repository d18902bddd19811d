package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a batch id is unknown.
var ErrNotFound = errors.New("not found")

// DB wraps the history database connection.
type DB struct {
	conn *gorm.DB
}

// Open opens (creating if needed) the SQLite history database at path.
func Open(path string) (*DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := conn.AutoMigrate(&Batch{}, &JobRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordBatch stores a batch together with its job records.
func (d *DB) RecordBatch(b *Batch) error {
	return d.conn.Transaction(func(tx *gorm.DB) error {
		return tx.Create(b).Error
	})
}

// ListBatches returns batches newest first, without their jobs.
func (d *DB) ListBatches(limit, offset int) ([]Batch, int64, error) {
	var total int64
	if err := d.conn.Model(&Batch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []Batch
	err := d.conn.Order("started_at desc").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// GetBatch loads one batch with its jobs in submission order.
func (d *DB) GetBatch(id string) (*Batch, error) {
	var b Batch
	err := d.conn.Preload("Jobs", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	}).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestBatch returns the most recent batch, or ErrNotFound.
func (d *DB) LatestBatch() (*Batch, error) {
	var b Batch
	err := d.conn.Order("started_at desc").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.GetBatch(b.ID)
}

// ListJobs lists job records, optionally filtered by status, newest first.
func (d *DB) ListJobs(status string, limit, offset int) ([]JobRecord, int64, error) {
	q := d.conn.Model(&JobRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []JobRecord
	err := q.Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// LastSuccess reports whether input with this MD5 was already converted.
func (d *DB) LastSuccess(input, md5 string) (bool, error) {
	var count int64
	err := d.conn.Model(&JobRecord{}).
		Where("input_path = ? AND source_md5 = ? AND status = ?", input, md5, StatusSuccess).
		Count(&count).Error
	return count > 0, err
}

// GetStats retrieves conversion statistics.
func (d *DB) GetStats() (*Stats, error) {
	stats := &Stats{}
	if err := d.conn.Model(&Batch{}).Count(&stats.Batches).Error; err != nil {
		return nil, err
	}
	if err := d.conn.Model(&JobRecord{}).Count(&stats.TotalJobs).Error; err != nil {
		return nil, err
	}
	if err := d.conn.Model(&JobRecord{}).Where("status = ?", StatusSuccess).Count(&stats.SuccessCount).Error; err != nil {
		return nil, err
	}
	if err := d.conn.Model(&JobRecord{}).Where("status = ?", StatusFailed).Count(&stats.FailedCount).Error; err != nil {
		return nil, err
	}
	var deleted struct{ Sum int64 }
	if err := d.conn.Model(&Batch{}).Select("COALESCE(SUM(deleted), 0) AS sum").Scan(&deleted).Error; err != nil {
		return nil, err
	}
	stats.DeletedCount = deleted.Sum
	return stats, nil
}
