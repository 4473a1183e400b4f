package comments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// DefaultUniqueTargetThreshold — сколько разных постов нужно прокомментировать
// за период. В ревизиях исходника встречался и порог «2 комментария всего»;
// каноничным выбран счёт по уникальным постам, значение переопределяется конфигом.
const DefaultUniqueTargetThreshold = 4

// Service считает статус задачи «комментировать» и переключает отметки.
// Комментарии оцениваются по постам предыдущего периода: участникам нужно
// время, чтобы прочитать тексты прошлого месяца.
type Service struct {
	comments  domain.CommentRepo
	posts     domain.BlogRepo
	users     domain.UserRepo
	queue     domain.ActivityQueue
	threshold int
}

// NewService создаёт сервис комментариев. threshold <= 0 заменяется значением по умолчанию.
func NewService(comments domain.CommentRepo, posts domain.BlogRepo, users domain.UserRepo, queue domain.ActivityQueue, threshold int) *Service {
	if threshold <= 0 {
		threshold = DefaultUniqueTargetThreshold
	}
	return &Service{comments: comments, posts: posts, users: users, queue: queue, threshold: threshold}
}

// Threshold возвращает действующий порог уникальных постов.
func (s *Service) Threshold() int {
	return s.threshold
}

// EligibleTargets возвращает чужие посты периода с отметкой «уже прокомментирован».
// Собственные посты никогда не участвуют.
func (s *Service) EligibleTargets(ctx context.Context, userID, periodID uuid.UUID) ([]domain.CommentTarget, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	posts, err := s.posts.ListPeriodPosts(ctx, periodID, userID)
	if err != nil {
		return nil, fmt.Errorf("посты периода: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	postIDs := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}
	given, err := s.comments.ListGivenBy(ctx, userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("отметки пользователя: %w", err)
	}
	commented := make(map[uuid.UUID]struct{}, len(given))
	for _, rec := range given {
		commented[rec.BlogPostID] = struct{}{}
	}

	targets := make([]domain.CommentTarget, 0, len(posts))
	for _, p := range posts {
		author, err := s.users.GetUser(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("автор поста: %w", err)
		}
		_, has := commented[p.ID]
		targets = append(targets, domain.CommentTarget{
			Post:         p,
			AuthorName:   author.Name,
			HasCommented: has,
		})
	}
	return targets, nil
}

// UserCommentStatus пересчитывает счётчики комментариев пользователя за период.
func (s *Service) UserCommentStatus(ctx context.Context, userID, periodID uuid.UUID) (domain.CommentStatus, error) {
	if userID == uuid.Nil {
		return domain.CommentStatus{}, domain.ErrUnauthenticated
	}
	eligible, err := s.posts.ListPeriodPosts(ctx, periodID, userID)
	if err != nil {
		return domain.CommentStatus{}, fmt.Errorf("посты периода: %w", err)
	}

	status := domain.CommentStatus{UserID: userID, PeriodID: periodID}
	if len(eligible) > 0 {
		postIDs := make([]uuid.UUID, 0, len(eligible))
		for _, p := range eligible {
			postIDs = append(postIDs, p.ID)
		}
		given, err := s.comments.ListGivenBy(ctx, userID, postIDs)
		if err != nil {
			return domain.CommentStatus{}, fmt.Errorf("отметки пользователя: %w", err)
		}
		unique := make(map[uuid.UUID]struct{}, len(given))
		for _, rec := range given {
			unique[rec.BlogPostID] = struct{}{}
		}
		status.CommentsGiven = len(given)
		status.UniquePostsCommented = len(unique)
	}

	received, err := s.comments.CountReceivedBy(ctx, userID, periodID)
	if err != nil {
		return domain.CommentStatus{}, fmt.Errorf("полученные комментарии: %w", err)
	}
	status.CommentsReceived = received
	status.IsCompleted = status.UniquePostsCommented >= s.threshold
	return status, nil
}

// ToggleComment переключает отметку для пары (комментатор, пост).
// Повторный вызов возвращает состояние к исходному; гонка двух одинаковых
// переключений гасится уникальным ограничением в хранилище.
func (s *Service) ToggleComment(ctx context.Context, commenterID, postID uuid.UUID) (domain.ToggleResult, error) {
	if commenterID == uuid.Nil {
		return "", domain.ErrUnauthenticated
	}
	if postID == uuid.Nil {
		return "", fmt.Errorf("%w: пост обязателен", domain.ErrValidation)
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("пост отметки: %w", err)
	}
	if post.UserID == commenterID {
		return "", fmt.Errorf("%w: собственные посты не комментируются", domain.ErrValidation)
	}

	result, err := s.comments.Toggle(ctx, commenterID, postID)
	if err != nil {
		return "", fmt.Errorf("переключение отметки: %w", err)
	}
	metrics.IncCommentToggle(string(result))
	if s.queue != nil {
		_ = s.queue.Publish(ctx, domain.ActivityEvent{
			Kind:       domain.ActivityComment,
			UserID:     commenterID,
			OccurredAt: time.Now().UTC(),
		})
	}
	return result, nil
}
