// Package index implements the Transcript Index (spec EXPANSION C9): a
// read-optimized SQLite cache of published and pending transcripts, used
// only to answer the operator API's list/search requests efficiently.
// The filesystem remains authoritative — this cache is fully disposable
// and Rebuild always reconstructs it from scratch.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voicekeep/internal/curator"
	"voicekeep/internal/fslayout"
	"voicekeep/internal/fsutil"
)

// IndexRecord is one row of the cache. It is never consulted to enforce
// an invariant — only to answer queries faster than walking the curator
// tree directly.
type IndexRecord struct {
	Stem            string `gorm:"primaryKey;type:varchar(255)"`
	Timestamp       time.Time
	NumSpeakers     int
	Speakers        string // comma-joined, query-only
	FullTextPreview string `gorm:"type:text"`
	CuratorPath     string `gorm:"type:text;not null"`
	Pending         bool
}

// Index wraps the gorm/sqlite handle.
type Index struct {
	db *gorm.DB
}

// Open connects to the SQLite file at path (creating its parent directory
// and the file if needed) and auto-migrates IndexRecord.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("index: create directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_timeout=30000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	if err := db.AutoMigrate(&IndexRecord{}); err != nil {
		return nil, fmt.Errorf("index: automigrate: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database connection.
func (ix *Index) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts or replaces rec.
func (ix *Index) Upsert(rec IndexRecord) error {
	return ix.db.Save(&rec).Error
}

// Remove deletes the row for stem, if present.
func (ix *Index) Remove(stem string) error {
	return ix.db.Delete(&IndexRecord{}, "stem = ?", stem).Error
}

// SearchQuery filters Search results. Zero-value fields are unfiltered.
type SearchQuery struct {
	Speaker string
	Pending *bool
	Limit   int
}

// Search returns matching records, most recent first.
func (ix *Index) Search(q SearchQuery) ([]IndexRecord, error) {
	tx := ix.db.Model(&IndexRecord{})
	if q.Speaker != "" {
		tx = tx.Where("speakers LIKE ?", "%"+q.Speaker+"%")
	}
	if q.Pending != nil {
		tx = tx.Where("pending = ?", *q.Pending)
	}
	tx = tx.Order("timestamp DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []IndexRecord
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return out, nil
}

// Rebuild fully repopulates the index from the curator tree (active and
// pending), discarding any row not backed by a file found this pass.
func (ix *Index) Rebuild(layout fslayout.Layout) error {
	fresh := map[string]IndexRecord{}
	if err := collectTree(layout.VoiceRoot(), false, fresh); err != nil {
		return err
	}
	if err := collectTree(filepath.Join(layout.VoiceRoot(), "_pending"), true, fresh); err != nil {
		return err
	}

	return ix.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM index_records").Error; err != nil {
			return err
		}
		for _, rec := range fresh {
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func collectTree(root string, pending bool, out map[string]IndexRecord) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || d.Name() == "_conversation.json" {
			return nil
		}
		var doc curator.Document
		if readErr := fsutil.ReadJSON(path, &doc); readErr != nil {
			return nil
		}
		stem := strings.TrimSuffix(doc.AudioPath, ".wav")
		if stem == "" {
			stem = strings.TrimSuffix(d.Name(), ".json")
		}
		ts, _ := time.Parse("2006-01-02T15:04:05Z", doc.Timestamp)

		names := make([]string, 0, len(doc.Speakers))
		for _, sp := range doc.Speakers {
			names = append(names, sp.Name)
		}
		out[stem] = IndexRecord{
			Stem:            stem,
			Timestamp:       ts,
			NumSpeakers:     doc.NumSpeakers,
			Speakers:        strings.Join(names, ","),
			FullTextPreview: preview(doc.FullText, 240),
			CuratorPath:     path,
			Pending:         pending,
		}
		return nil
	})
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
