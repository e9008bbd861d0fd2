package kvstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the kv_entries row.
type Entry struct {
	Key       string     `gorm:"primaryKey;size:512"`
	Value     []byte     `gorm:"type:bytea;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

// Postgres stores keys in a single table. Expired rows are invisible to
// reads and are reclaimed by PurgeExpired or overwritten on insert.
type Postgres struct {
	db *database.DB
}

// NewPostgres migrates kv_entries and returns the store.
func NewPostgres(db *database.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func expiry(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := time.Now().UTC().Add(ttl)
	return &t
}

func live(tx *gorm.DB) *gorm.DB {
	return tx.Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC())
}

func deleteExpired(tx *gorm.DB, key string) error {
	return tx.Where("key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, time.Now().UTC()).
		Delete(&Entry{}).Error
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := live(p.db.WithContext(ctx).Where("key = ?", key)).First(&e).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e.Value, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := Entry{Key: key, Value: value, ExpiresAt: expiry(ttl)}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
}

func (p *Postgres) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var created bool
	err := p.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := deleteExpired(tx, key); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Entry{Key: key, Value: value, ExpiresAt: expiry(ttl)})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	return created, err
}

func (p *Postgres) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := p.db.TransactionWithRetry(ctx, 3, func(ctx context.Context, tx *gorm.DB) error {
		if err := deleteExpired(tx, key); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Entry{Key: key, Value: []byte("0")}).Error; err != nil {
			return err
		}

		var e Entry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).First(&e).Error; err != nil {
			return err
		}

		cur, err := strconv.ParseInt(string(e.Value), 10, 64)
		if err != nil {
			return ErrNotInteger
		}
		n = cur + 1

		return tx.Model(&Entry{}).Where("key = ?", key).
			Updates(map[string]interface{}{
				"value":      []byte(strconv.FormatInt(n, 10)),
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (p *Postgres) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	q := live(p.db.WithContext(ctx).Model(&Entry{})).
		Where("key LIKE ?", likeEscaper.Replace(prefix)+"%").
		Order("key")
	if limit > 0 {
		q = q.Limit(limit)
	}

	keys := make([]string, 0)
	if err := q.Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.HealthCheck(ctx)
}

// PurgeExpired deletes rows whose ttl has elapsed.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res := p.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now().UTC()).
		Delete(&Entry{})
	return res.RowsAffected, res.Error
}
