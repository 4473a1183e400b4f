package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// Пост сдаётся ссылкой на issue или pull request.
var issueURLRegex = regexp.MustCompile(`^https://[\w.\-]+/[\w.\-]+/[\w.\-]+/(issues|pull)/\d+$`)

// Service проверяет задачу «написать пост» и принимает новые ссылки.
type Service struct {
	posts   domain.BlogRepo
	periods domain.PeriodRepo
	queue   domain.ActivityQueue
}

// NewService создаёт сервис постов.
func NewService(posts domain.BlogRepo, periods domain.PeriodRepo, queue domain.ActivityQueue) *Service {
	return &Service{posts: posts, periods: periods, queue: queue}
}

// ValidateIssueURL проверяет форму ссылки.
func ValidateIssueURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: ссылка обязательна", domain.ErrValidation)
	}
	if !issueURLRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: ожидали https://<host>/<owner>/<repo>/issues/<n>", domain.ErrInvalidFormat)
	}
	return nil
}

// CheckCompletion возвращает статус задачи за период: достаточно одного поста.
func (s *Service) CheckCompletion(ctx context.Context, userID, periodID uuid.UUID) (domain.BlogStatus, error) {
	posts, err := s.posts.ListUserPosts(ctx, userID, periodID)
	if err != nil {
		return domain.BlogStatus{}, fmt.Errorf("посты пользователя: %w", err)
	}
	return domain.BlogStatus{
		UserID:      userID,
		PeriodID:    periodID,
		IsCompleted: len(posts) >= 1,
		PostCount:   len(posts),
		Posts:       posts,
	}, nil
}

// CreatePost регистрирует новый пост. Постов за период может быть несколько,
// учитываются все.
func (s *Service) CreatePost(ctx context.Context, userID, periodID uuid.UUID, rawURL string, now time.Time) (domain.BlogPost, error) {
	if userID == uuid.Nil {
		return domain.BlogPost{}, domain.ErrUnauthenticated
	}
	if err := ValidateIssueURL(rawURL); err != nil {
		return domain.BlogPost{}, err
	}
	period, err := s.periods.GetPeriodByID(ctx, periodID)
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("период поста: %w", err)
	}

	post := domain.BlogPost{
		ID:          uuid.New(),
		UserID:      userID,
		PeriodID:    period.ID,
		IssueURL:    strings.TrimSpace(rawURL),
		SubmittedAt: now.UTC(),
	}
	inserted, err := s.posts.InsertPost(ctx, post)
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("сохранение поста: %w", err)
	}
	metrics.PostSubmissionsTotal.Inc()
	if s.queue != nil {
		_ = s.queue.Publish(ctx, domain.ActivityEvent{
			Kind:       domain.ActivityBlogPost,
			UserID:     userID,
			PeriodID:   period.ID,
			OccurredAt: inserted.SubmittedAt,
		})
	}
	return inserted, nil
}
