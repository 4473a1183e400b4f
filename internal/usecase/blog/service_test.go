package blog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
)

type stubBlogRepo struct {
	posts    []domain.BlogPost
	inserted []domain.BlogPost
}

func (s *stubBlogRepo) GetPost(context.Context, uuid.UUID) (domain.BlogPost, error) {
	return domain.BlogPost{}, domain.ErrNotFound
}

func (s *stubBlogRepo) ListUserPosts(context.Context, uuid.UUID, uuid.UUID) ([]domain.BlogPost, error) {
	return s.posts, nil
}

func (s *stubBlogRepo) ListPeriodPosts(context.Context, uuid.UUID, uuid.UUID) ([]domain.BlogPost, error) {
	return s.posts, nil
}

func (s *stubBlogRepo) InsertPost(_ context.Context, p domain.BlogPost) (domain.BlogPost, error) {
	s.inserted = append(s.inserted, p)
	return p, nil
}

type stubPeriodRepo struct {
	period domain.Period
	err    error
}

func (s *stubPeriodRepo) GetByYearMonth(context.Context, int, int) (domain.Period, error) {
	return s.period, s.err
}
func (s *stubPeriodRepo) GetPeriodByID(context.Context, uuid.UUID) (domain.Period, error) {
	return s.period, s.err
}
func (s *stubPeriodRepo) ListAll(context.Context) ([]domain.Period, error) { return nil, nil }
func (s *stubPeriodRepo) CreatePeriod(_ context.Context, p domain.Period) (domain.Period, error) {
	return p, nil
}

func TestValidateIssueURL(t *testing.T) {
	valid := []string{
		"https://github.com/acme/blog/issues/42",
		"https://github.com/user-name/repo.name/pull/7",
		"https://gitea.example.org/team/notes/issues/1",
	}
	for _, u := range valid {
		if err := ValidateIssueURL(u); err != nil {
			t.Errorf("ссылка %q должна проходить проверку: %v", u, err)
		}
	}

	if err := ValidateIssueURL(""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("пустая ссылка — ErrValidation, получили %v", err)
	}

	invalid := []string{
		"http://github.com/acme/blog/issues/42",
		"https://github.com/acme/blog/issues/",
		"https://github.com/acme/issues/42",
		"https://github.com/acme/blog/discussions/42",
		"github.com/acme/blog/issues/42",
	}
	for _, u := range invalid {
		if err := ValidateIssueURL(u); !errors.Is(err, domain.ErrInvalidFormat) {
			t.Errorf("ссылка %q должна давать ErrInvalidFormat, получили %v", u, err)
		}
	}
}

func TestCheckCompletionSinglePost(t *testing.T) {
	userID := uuid.New()
	periodID := uuid.New()
	repo := &stubBlogRepo{posts: []domain.BlogPost{{
		ID:       uuid.New(),
		UserID:   userID,
		PeriodID: periodID,
		IssueURL: "https://github.com/acme/blog/issues/42",
	}}}
	svc := NewService(repo, &stubPeriodRepo{}, nil)

	status, err := svc.CheckCompletion(context.Background(), userID, periodID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !status.IsCompleted || status.PostCount != 1 {
		t.Fatalf("один пост закрывает задачу: completed=%v count=%d", status.IsCompleted, status.PostCount)
	}
}

func TestCheckCompletionNoPosts(t *testing.T) {
	svc := NewService(&stubBlogRepo{}, &stubPeriodRepo{}, nil)
	status, err := svc.CheckCompletion(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.IsCompleted || status.PostCount != 0 {
		t.Fatalf("без постов задача не закрыта")
	}
}

func TestCreatePostValidations(t *testing.T) {
	svc := NewService(&stubBlogRepo{}, &stubPeriodRepo{period: domain.Period{ID: uuid.New()}}, nil)

	if _, err := svc.CreatePost(context.Background(), uuid.Nil, uuid.New(), "https://github.com/a/b/issues/1", time.Now()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("без пользователя ожидали ErrUnauthenticated, получили %v", err)
	}
	if _, err := svc.CreatePost(context.Background(), uuid.New(), uuid.New(), "not-a-url", time.Now()); !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("ожидали ErrInvalidFormat, получили %v", err)
	}
}

func TestCreatePostPeriodNotFound(t *testing.T) {
	svc := NewService(&stubBlogRepo{}, &stubPeriodRepo{err: domain.ErrPeriodNotFound}, nil)
	_, err := svc.CreatePost(context.Background(), uuid.New(), uuid.New(), "https://github.com/a/b/issues/1", time.Now())
	if !errors.Is(err, domain.ErrPeriodNotFound) {
		t.Fatalf("ожидали ErrPeriodNotFound, получили %v", err)
	}
}

func TestCreatePostAllowsMultiplePerPeriod(t *testing.T) {
	repo := &stubBlogRepo{}
	svc := NewService(repo, &stubPeriodRepo{period: domain.Period{ID: uuid.New()}}, nil)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := svc.CreatePost(context.Background(), userID, uuid.New(), "https://github.com/acme/blog/issues/42", time.Now()); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("ожидали 2 вставки, получили %d", len(repo.inserted))
	}
}
