// Package refdata caches provider field metadata (required recipient fields
// per country/currency corridor). Pure caching with a 30-day expiry; the
// payout state machine never depends on it.
package refdata

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const TTL = 30 * 24 * time.Hour

var ErrMiss = errors.New("refdata: cache miss")

type Entry struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Provider string `gorm:"type:varchar(32);not null;uniqueIndex:ux_refdata_key,priority:1"`
	Country  string `gorm:"type:char(2);not null;uniqueIndex:ux_refdata_key,priority:2"`
	Currency string `gorm:"type:char(3);not null;uniqueIndex:ux_refdata_key,priority:3"`

	Fields datatypes.JSON `gorm:"type:json;not null"`

	FetchedAt time.Time `gorm:"precision:3;not null"`
	ExpiresAt time.Time `gorm:"precision:3;not null;index:ix_refdata_expires"`
}

func (Entry) TableName() string { return "provider_refdata" }

type Cache struct{ db *gorm.DB }

func NewCache(db *gorm.DB) *Cache { return &Cache{db: db} }

// Get returns the cached field metadata, or ErrMiss when absent or expired.
func (c *Cache) Get(ctx context.Context, provider, country, currency string) ([]byte, error) {
	var e Entry
	err := c.db.WithContext(ctx).
		First(&e, "provider = ? AND country = ? AND currency = ?", provider, country, currency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(e.ExpiresAt) {
		return nil, ErrMiss
	}
	return e.Fields, nil
}

// Put upserts the entry and restarts its 30-day clock.
func (c *Cache) Put(ctx context.Context, provider, country, currency string, fields []byte) error {
	now := time.Now()

	res := c.db.WithContext(ctx).Model(&Entry{}).
		Where("provider = ? AND country = ? AND currency = ?", provider, country, currency).
		Updates(map[string]any{
			"fields":     datatypes.JSON(fields),
			"fetched_at": now,
			"expires_at": now.Add(TTL),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	return c.db.WithContext(ctx).Create(&Entry{
		ID:        uuid.NewString(),
		Provider:  provider,
		Country:   country,
		Currency:  currency,
		Fields:    datatypes.JSON(fields),
		FetchedAt: now,
		ExpiresAt: now.Add(TTL),
	}).Error
}

// Prune drops expired rows. Called opportunistically from the API layer.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	res := c.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&Entry{})
	return res.RowsAffected, res.Error
}
