package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
)

// ReviewLog appends review gate submissions to a JSON array
type ReviewLog struct {
	kv  kv.Store
	log *logger.Logger
	mu  sync.Mutex
}

func NewReviewLog(store kv.Store, log *logger.Logger) *ReviewLog {
	return &ReviewLog{kv: store, log: log.With("component", "ReviewLog")}
}

// All returns every stored review, empty when nothing valid is stored
func (r *ReviewLog) All(ctx context.Context) ([]models.Review, error) {
	data, err := r.kv.Get(ctx, KeyReviews)
	if errors.Is(err, kv.ErrNotFound) {
		return []models.Review{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	var reviews []models.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		r.log.Warn("Stored reviews are malformed, starting over", "error", err)
		return []models.Review{}, nil
	}
	return reviews, nil
}

// Append stores one more review
func (r *ReviewLog) Append(ctx context.Context, review models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reviews, err := r.All(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(append(reviews, review))
	if err != nil {
		return fmt.Errorf("encode reviews: %w", err)
	}
	if err := r.kv.Set(ctx, KeyReviews, data); err != nil {
		return fmt.Errorf("save reviews: %w", err)
	}
	return nil
}
