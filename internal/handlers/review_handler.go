package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/services"
)

type ReviewHandler struct {
	ctx           context.Context
	reviewService *services.ReviewService
}

func NewReviewHandler(ctx context.Context, reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{ctx: ctx, reviewService: reviewService}
}

func reviewsResponse(reviews []content.Review) dto.ReviewsResponse {
	return dto.ReviewsResponse{Reviews: reviews, Average: services.ComputeAverage(reviews)}
}

func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.reviewService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviewsResponse(reviews))
}

func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	id, err := h.reviewService.Submit(c.UserContext(), req.Name, req.Rating, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Stream pushes the review list and average after every new review.
func (h *ReviewHandler) Stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(h.ctx)
	updates, err := h.reviewService.Watch(ctx)
	if err != nil {
		cancel()
		return respondError(c, err)
	}

	changes := make(chan struct{}, 1)
	var mu sync.Mutex
	var latest []content.Review
	go func() {
		for reviews := range updates {
			mu.Lock()
			latest = reviews
			mu.Unlock()
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}()

	return startSSE(ctx, c, sseStream{
		event:   "reviews",
		changes: changes,
		cancel:  cancel,
		snapshot: func() any {
			mu.Lock()
			defer mu.Unlock()
			return reviewsResponse(latest)
		},
	})
}
