package content

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/robwestplumbing/sitecms/internal/docstore"
)

// GalleryItem is one document of the gallery collection. Items with a Section
// belong to that section's images; the rest form the public gallery.
type GalleryItem struct {
	ID          string    `json:"id"`
	URL         ImageRef  `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	UploadedBy  string    `json:"uploadedBy"`
	Description string    `json:"description,omitempty"`
	Folder      string    `json:"folder,omitempty"`
	Section     string    `json:"section,omitempty"`
}

// NewGalleryFields is the document appended for a new upload.
func NewGalleryFields(url ImageRef, uploadedBy, description, folder, section string) docstore.Fields {
	f := docstore.Fields{
		"url":        string(url),
		"uploadedBy": uploadedBy,
		"createdAt":  docstore.ServerTimestamp,
	}
	if description != "" {
		f["description"] = description
	}
	if folder != "" {
		f["folder"] = folder
	}
	if section != "" {
		f["section"] = section
	}
	return f
}

func GalleryItemFromSnapshot(s docstore.DocumentSnapshot) GalleryItem {
	return GalleryItem{
		ID:          s.ID,
		URL:         ImageRef(stringField(s.Fields, "url")),
		CreatedAt:   timeField(s.Fields, "createdAt", s.CreateTime),
		UploadedBy:  stringField(s.Fields, "uploadedBy"),
		Description: stringField(s.Fields, "description"),
		Folder:      stringField(s.Fields, "folder"),
		Section:     stringField(s.Fields, "section"),
	}
}

// Review is a visitor review.
type Review struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 5
)

// ClampRating forces r into [MinRating, MaxRating].
func ClampRating(r int) int {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	}
	return r
}

func ReviewFromSnapshot(s docstore.DocumentSnapshot) Review {
	return Review{
		ID:        s.ID,
		Name:      stringField(s.Fields, "name"),
		Rating:    ratingField(s.Fields["rating"]),
		Text:      stringField(s.Fields, "text"),
		CreatedAt: timeField(s.Fields, "createdAt", s.CreateTime),
	}
}

func stringField(f docstore.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func timeField(f docstore.Fields, key string, fallback time.Time) time.Time {
	s, ok := f[key].(string)
	if !ok {
		return fallback
	}
	for _, layout := range []string{docstore.TimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

// ratingField accepts numbers and numeric strings; anything else counts as
// the default rating.
func ratingField(v any) int {
	switch r := v.(type) {
	case float64:
		if math.IsNaN(r) {
			return DefaultRating
		}
		return int(math.Max(MinRating, math.Min(MaxRating, r)))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(r)); err == nil {
			return n
		}
	}
	return DefaultRating
}
