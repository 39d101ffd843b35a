package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/metrics"
)

// DefaultAverageRating is shown while there are no reviews.
const DefaultAverageRating = 5.0

var reviewOrder = docstore.OrderBy{Field: "createdAt", Descending: true}

// ReviewService accepts visitor reviews and reads them back newest first.
type ReviewService struct {
	store      docstore.Store
	moderation *ModerationService
}

func NewReviewService(store docstore.Store, moderation *ModerationService) *ReviewService {
	return &ReviewService{store: store, moderation: moderation}
}

// Submit validates and appends a review. A nil rating counts as the default
// rating; out-of-range ratings are clamped.
func (s *ReviewService) Submit(ctx context.Context, name string, rating *int, text string) (string, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" {
		return "", &content.ValidationError{Field: "name", Message: "name is required"}
	}
	if text == "" {
		return "", &content.ValidationError{Field: "text", Message: "review text is required"}
	}
	if s.moderation != nil {
		if s.moderation.ContainsProfanity(name) {
			return "", &content.ValidationError{Field: "name", Message: s.moderation.GetRejectionMessage("inappropriate_language")}
		}
		if err := s.moderation.Check("text", text); err != nil {
			return "", err
		}
	}

	r := content.DefaultRating
	if rating != nil {
		r = content.ClampRating(*rating)
	}

	id, err := s.store.AppendToCollection(ctx, content.ReviewsCollection, docstore.Fields{
		"name":      name,
		"rating":    r,
		"text":      text,
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("submit review: %w", err)
	}
	metrics.ReviewsSubmitted.Inc()
	return id, nil
}

func (s *ReviewService) List(ctx context.Context) ([]content.Review, error) {
	docs, err := s.store.ListCollection(ctx, content.ReviewsCollection, reviewOrder)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviewsFromSnapshots(docs), nil
}

// Watch streams the full review list after every change until ctx is done.
// The returned channel is closed when the watch ends.
func (s *ReviewService) Watch(ctx context.Context) (<-chan []content.Review, error) {
	w, err := s.store.WatchCollection(ctx, content.ReviewsCollection, reviewOrder)
	if err != nil {
		return nil, fmt.Errorf("watch reviews: %w", err)
	}
	out := make(chan []content.Review, 1)
	go func() {
		defer close(out)
		defer w.Stop()
		for {
			select {
			case docs, ok := <-w.Updates():
				if !ok {
					return
				}
				select {
				case out <- reviewsFromSnapshots(docs):
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.Errors():
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ComputeAverage returns the mean of the clamped ratings rounded to one
// decimal, or DefaultAverageRating for an empty list.
func ComputeAverage(reviews []content.Review) float64 {
	if len(reviews) == 0 {
		return DefaultAverageRating
	}
	sum := 0
	for _, r := range reviews {
		sum += content.ClampRating(r.Rating)
	}
	mean := float64(sum) / float64(len(reviews))
	return math.Round(mean*10) / 10
}

func reviewsFromSnapshots(docs []docstore.DocumentSnapshot) []content.Review {
	reviews := make([]content.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, content.ReviewFromSnapshot(d))
	}
	return reviews
}
