package domain

import (
	"time"

	"github.com/google/uuid"
)

// User описывает участника учебной группы.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// AvatarInitial возвращает первую букву имени для аватарки.
func (u User) AvatarInitial() string {
	runes := []rune(u.Name)
	if len(runes) == 0 {
		return "?"
	}
	return string(runes[0])
}

// Period описывает отчётный месяц с явными границами окна.
// Границы задаются администратором и могут не совпадать с календарным месяцем.
type Period struct {
	ID        uuid.UUID
	Year      int
	Month     int
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// ContainsDay проверяет, попадает ли локальная дата в окно периода (границы включительно).
func (p Period) ContainsDay(day time.Time) bool {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(p.StartDate.Year(), p.StartDate.Month(), p.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(p.EndDate.Year(), p.EndDate.Month(), p.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(start) && !d.After(end)
}

// EventKind — тип события посещаемости.
type EventKind string

const (
	EventStart EventKind = "start"
	EventEnd   EventKind = "end"
)

// AttendanceEvent — одно событие чек-ина или чек-аута.
// События только добавляются и никогда не изменяются.
type AttendanceEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PeriodID  uuid.UUID
	Kind      EventKind
	Time      time.Time
	CreatedAt time.Time
}

// AttendanceSession — производная пара start/end в пределах одного локального дня.
// Открытая сессия (без end) не даёт длительности, пока не закрыта.
type AttendanceSession struct {
	Start time.Time
	End   time.Time
	Open  bool
}

// Duration возвращает длительность сессии. Для открытой сессии — ноль.
func (s AttendanceSession) Duration() time.Duration {
	if s.Open {
		return 0
	}
	return s.End.Sub(s.Start)
}

// CheckState — состояние кнопки посещаемости, выводится только из списка сессий.
type CheckState string

const (
	CheckStateStart   CheckState = "start"
	CheckStateEnd     CheckState = "end"
	CheckStateRestart CheckState = "restart"
)

// DailyStat — статистика одного локального дня для календаря.
type DailyStat struct {
	Date         time.Time
	Weekday      time.Weekday
	SessionCount int
	TotalMinutes int
	AttendedLate bool // была ли сессия в интервале 23:00–24:00
}

// DurationBucket — корзина суммарной длительности дня для цветовой шкалы календаря.
type DurationBucket string

const (
	BucketHigh    DurationBucket = "high"    // от 120 минут
	BucketMedium  DurationBucket = "medium"  // от 60 минут
	BucketLow     DurationBucket = "low"     // от 30 минут
	BucketMinimal DurationBucket = "minimal"
)

// Bucket возвращает корзину длительности дня.
func (d DailyStat) Bucket() DurationBucket {
	switch {
	case d.TotalMinutes >= 120:
		return BucketHigh
	case d.TotalMinutes >= 60:
		return BucketMedium
	case d.TotalMinutes >= 30:
		return BucketLow
	default:
		return BucketMinimal
	}
}

// AttendanceStatus — статус посещаемости пользователя за период.
type AttendanceStatus struct {
	UserID         uuid.UUID
	PeriodID       uuid.UUID
	WednesdayCount int
	TotalDays      int
	IsCompleted    bool
	Days           []DailyStat
}

// DailySummary — сводка сегодняшнего дня для модального окна посещаемости.
type DailySummary struct {
	Date         time.Time
	SessionCount int
	State        CheckState
	Sessions     []AttendanceSession
}

// BlogPost — ссылка на опубликованный пост (issue или pull request).
type BlogPost struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PeriodID    uuid.UUID
	IssueURL    string
	SubmittedAt time.Time
	CreatedAt   time.Time
}

// BlogStatus — статус задачи «написать пост» за период.
type BlogStatus struct {
	UserID      uuid.UUID
	PeriodID    uuid.UUID
	IsCompleted bool
	PostCount   int
	Posts       []BlogPost
}

// CommentRecord — отметка «я прокомментировал этот пост».
// На пару (комментатор, пост) существует не более одной записи.
type CommentRecord struct {
	ID          uuid.UUID
	CommenterID uuid.UUID
	BlogPostID  uuid.UUID
	CreatedAt   time.Time
}

// CommentTarget — чужой пост, доступный для комментирования.
type CommentTarget struct {
	Post         BlogPost
	AuthorName   string
	HasCommented bool
}

// CommentStatus — статус задачи «комментировать» за период.
type CommentStatus struct {
	UserID               uuid.UUID
	PeriodID             uuid.UUID
	CommentsGiven        int
	UniquePostsCommented int
	CommentsReceived     int
	IsCompleted          bool
}

// ToggleResult — результат переключения отметки комментария.
type ToggleResult string

const (
	ToggleInserted ToggleResult = "inserted"
	ToggleRemoved  ToggleResult = "removed"
)

// MemberSummary — сводка участника по трём задачам плюс активность.
type MemberSummary struct {
	User                User
	PeriodID            uuid.UUID
	CompletedTasks      int
	TotalTasks          int
	CompletionRate      int
	BlogCompleted       bool
	CommentsCompleted   bool
	AttendanceCompleted bool
	CommentsMade        int
	AttendanceDays      int
	LastActivity        *time.Time
	IsOnline            bool
	MinutesSinceActive  int
	Status              ProgressStatus
}

// TeamSummary — агрегат по всей команде за период.
type TeamSummary struct {
	PeriodID                 uuid.UUID
	TotalMembers             int
	OnlineMembers            int
	AvgCompletionRate        int
	CompletedMembers         int
	GoodMembers              int
	FairMembers              int
	PoorMembers              int
	BlogCompletedCount       int
	CommentsCompletedCount   int
	AttendanceCompletedCount int
	Grade                    string
}
