package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PeriodRepo управляет отчётными периодами.
type PeriodRepo interface {
	GetByYearMonth(ctx context.Context, year, month int) (Period, error)
	GetPeriodByID(ctx context.Context, id uuid.UUID) (Period, error)
	ListAll(ctx context.Context) ([]Period, error)
	CreatePeriod(ctx context.Context, period Period) (Period, error)
}

// UserRepo управляет участниками.
type UserRepo interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	ListMembers(ctx context.Context) ([]User, error)
	// LastActivityAt возвращает максимум среди таймстемпов событий посещаемости
	// и отметок комментариев пользователя. nil — активности не было.
	LastActivityAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
}

// AttendanceRepo управляет событиями посещаемости.
type AttendanceRepo interface {
	// ListEventsBetween возвращает события пользователя в полуинтервале [from, to),
	// отсортированные по времени.
	ListEventsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]AttendanceEvent, error)
	ListEventsForPeriod(ctx context.Context, userID, periodID uuid.UUID) ([]AttendanceEvent, error)
	InsertEvent(ctx context.Context, event AttendanceEvent) (AttendanceEvent, error)
}

// BlogRepo управляет постами.
type BlogRepo interface {
	GetPost(ctx context.Context, id uuid.UUID) (BlogPost, error)
	ListUserPosts(ctx context.Context, userID, periodID uuid.UUID) ([]BlogPost, error)
	// ListPeriodPosts возвращает все посты периода. excludeUser исключает автора,
	// uuid.Nil — без исключения.
	ListPeriodPosts(ctx context.Context, periodID, excludeUser uuid.UUID) ([]BlogPost, error)
	InsertPost(ctx context.Context, post BlogPost) (BlogPost, error)
}

// CommentRepo управляет отметками комментариев.
type CommentRepo interface {
	ListGivenBy(ctx context.Context, commenterID uuid.UUID, postIDs []uuid.UUID) ([]CommentRecord, error)
	CountReceivedBy(ctx context.Context, authorID, periodID uuid.UUID) (int, error)
	// Toggle вставляет отметку, а при конфликте по (commenter, post) удаляет её.
	// Уникальность гарантируется ограничением в БД, не приложением.
	Toggle(ctx context.Context, commenterID, postID uuid.UUID) (ToggleResult, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}

// ActivityQueue публикует события активности для инвалидации клиентских кэшей.
type ActivityQueue interface {
	Publish(ctx context.Context, event ActivityEvent) error
}
