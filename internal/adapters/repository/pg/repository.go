package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

// recordRow is the latest snapshot of one raw record.
type recordRow struct {
	Type      string    `gorm:"primaryKey;size:32"`
	ID        string    `gorm:"primaryKey;size:255"`
	Body      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"index"`
}

func (recordRow) TableName() string {
	return "entity_records"
}

type Repository struct {
	db *gorm.DB
}

var _ ports.RecordRepository = (*Repository)(nil)

// NewRepository connects to postgres and migrates the snapshot table.
func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewRepositoryWithDB(db)
}

// NewRepositoryWithDB migrates and uses an already opened database.
func NewRepositoryWithDB(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// Save upserts the snapshot of r.
func (r *Repository) Save(ctx context.Context, rec *record.Record) error {
	body, err := record.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Key(), err)
	}
	row := recordRow{Type: string(rec.Type), ID: rec.ID, Body: string(body), UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&row).Error
}

func (r *Repository) Get(ctx context.Context, t domain.EntityType, id string) (*record.Record, error) {
	var row recordRow
	err := r.db.WithContext(ctx).First(&row, "type = ? AND id = ?", string(t), id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ports.ErrNotFound, t, id)
	}
	if err != nil {
		return nil, err
	}
	return record.Unmarshal([]byte(row.Body))
}

// List returns snapshots of type t ordered by id.
func (r *Repository) List(ctx context.Context, t domain.EntityType, offset, limit int) ([]*record.Record, error) {
	var rows []recordRow
	if err := r.db.WithContext(ctx).Where("type = ?", string(t)).Order("id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*record.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := record.Unmarshal([]byte(row.Body))
		if err != nil {
			return nil, fmt.Errorf("decode %s:%s: %w", row.Type, row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context, t domain.EntityType) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&recordRow{}).Where("type = ?", string(t)).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) Delete(ctx context.Context, t domain.EntityType, id string) error {
	return r.db.WithContext(ctx).Where("type = ? AND id = ?", string(t), id).Delete(&recordRow{}).Error
}

// DB returns the underlying gorm DB instance
func (r *Repository) DB() *gorm.DB {
	return r.db
}
