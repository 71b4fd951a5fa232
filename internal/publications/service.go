package publications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/ratelimit"
)

// RefreshResult reports a manual refresh attempt. When Allowed is
// false the external search was never invoked and RetryAfter tells the
// user when the budget frees up.
type RefreshResult struct {
	Allowed           bool      `json:"allowed"`
	Remaining         int       `json:"remaining"`
	RetryAfter        time.Time `json:"retry_after,omitempty"`
	Success           bool      `json:"success"`
	PublicationsFound int       `json:"publications_found"`
}

// Service gates publication searches behind the per-user rate budget.
type Service struct {
	searcher Searcher
	limiter  ratelimit.Limiter
	logger   *zap.Logger
}

// NewService creates a refresh service.
func NewService(searcher Searcher, limiter ratelimit.Limiter, logger *zap.Logger) *Service {
	return &Service{
		searcher: searcher,
		limiter:  limiter,
		logger:   logger.Named("publications"),
	}
}

// Refresh consumes one unit of the user's budget and, if allowed, runs
// the external search. A denial is a normal result, not an error.
func (s *Service) Refresh(ctx context.Context, userID, processNumber string) (RefreshResult, error) {
	quota, err := s.limiter.TryConsume(ctx, userID, time.Now())
	if err != nil {
		return RefreshResult{}, err
	}

	if !quota.Allowed {
		s.logger.Info("publication refresh rate limited",
			zap.String("user_id", userID),
			zap.Time("retry_after", quota.ResetAt),
		)
		return RefreshResult{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: quota.ResetAt,
		}, nil
	}

	result, err := s.searcher.Search(ctx, processNumber)
	if err != nil {
		return RefreshResult{Allowed: true, Remaining: quota.Remaining}, err
	}

	s.logger.Info("publication refresh completed",
		zap.String("user_id", userID),
		zap.String("process_number", processNumber),
		zap.Int("publications_found", result.PublicationsFound),
	)

	return RefreshResult{
		Allowed:           true,
		Remaining:         quota.Remaining,
		Success:           result.Success,
		PublicationsFound: result.PublicationsFound,
	}, nil
}
