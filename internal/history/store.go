// Package history keeps a local record of past analyses in SQLite.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a store that lives only as long as the process.
const MemoryPath = ":memory:"

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one saved analysis.
type Entry struct {
	ID        string                  `json:"id" yaml:"id"`
	CreatedAt time.Time               `json:"created_at" yaml:"created_at"`
	Filename  string                  `json:"filename" yaml:"filename"`
	Result    pipeline.AnalysisResult `json:"result" yaml:"result"`
}

// record is the table row. The result is stored as the JSON it was
// serialized to, so reading an entry back returns it unchanged.
type record struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"uniqueIndex;size:36;not null"`
	CreatedAt  time.Time `gorm:"index"`
	Filename   string
	PestID     string  `gorm:"index"`
	Confidence float64
	ResultJSON string `gorm:"type:text;not null"`
}

func (record) TableName() string { return "analyses" }

func (r *record) entry() (*Entry, error) {
	e := &Entry{ID: r.ID, CreatedAt: r.CreatedAt, Filename: r.Filename}
	if err := json.Unmarshal([]byte(r.ResultJSON), &e.Result); err != nil {
		return nil, fmt.Errorf("decode history entry %s: %w", r.ID, err)
	}
	return e, nil
}

// Store is a SQLite-backed history. It is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens or creates the store at path. MemoryPath gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// every in-memory connection is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&record{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append saves res under a new id and returns the stored entry.
func (s *Store) Append(ctx context.Context, filename string, res *pipeline.AnalysisResult) (*Entry, error) {
	if res == nil {
		return nil, errors.New("nil analysis result")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode analysis result: %w", err)
	}
	rec := record{
		ID:         uuid.NewString(),
		CreatedAt:  s.now().UTC(),
		Filename:   filename,
		PestID:     res.PestID,
		Confidence: res.Confidence,
		ResultJSON: string(data),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("save history entry: %w", err)
	}
	return rec.entry()
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	var recs []record
	q := s.db.WithContext(ctx).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]*Entry, 0, len(recs))
	for i := range recs {
		e, err := recs[i].entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var rec record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return rec.entry()
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&record{})
	if tx.Error != nil {
		return fmt.Errorf("delete history entry: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx := s.db.WithContext(ctx).Where("1 = 1").Delete(&record{})
	if tx.Error != nil {
		return 0, fmt.Errorf("clear history: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}
