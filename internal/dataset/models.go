package dataset

import (
	"time"

	"github.com/lehigh-university-libraries/marvelous/internal/cache"
	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

// SnapshotRecord is one cached character as written to a snapshot file
type SnapshotRecord struct {
	ID             int    `json:"id" parquet:"id" yaml:"id"`
	Name           string `json:"name" parquet:"name" yaml:"name"`
	Description    string `json:"description" parquet:"description" yaml:"description"`
	ImagePath      string `json:"image_path" parquet:"image_path" yaml:"imagepath,omitempty"`
	ImageExtension string `json:"image_extension" parquet:"image_extension" yaml:"imageextension,omitempty"`

	// Unix milliseconds of the last cache write; zero when unknown
	WrittenAt int64 `json:"written_at" parquet:"written_at" yaml:"writtenat,omitempty"`
}

// FromEntry converts a cache entry into a snapshot row
func FromEntry(e cache.Entry) SnapshotRecord {
	s := SnapshotRecord{
		ID:          e.Record.ID,
		Name:        e.Record.Name,
		Description: e.Record.Description,
	}
	if e.Record.Thumbnail != nil {
		s.ImagePath = e.Record.Thumbnail.Path
		s.ImageExtension = e.Record.Thumbnail.Extension
	}
	if !e.WriteTimestamp.IsZero() {
		s.WrittenAt = e.WriteTimestamp.UnixMilli()
	}
	return s
}

// Record converts the row back into a catalog record
func (s SnapshotRecord) Record() models.Record {
	r := models.Record{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
	}
	if s.ImagePath != "" || s.ImageExtension != "" {
		r.Thumbnail = &models.ImageRef{Path: s.ImagePath, Extension: s.ImageExtension}
	}
	return r
}

// WrittenTime returns WrittenAt as a time, zero when unknown
func (s SnapshotRecord) WrittenTime() time.Time {
	if s.WrittenAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.WrittenAt)
}
