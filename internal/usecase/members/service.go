package members

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// DefaultOnlineWindow — окно активности, в пределах которого участник считается онлайн.
const DefaultOnlineWindow = 30 * time.Minute

const teamSummaryCacheTTL = time.Minute

// AttendanceChecker отдаёт статус посещаемости за период.
type AttendanceChecker interface {
	PeriodStats(ctx context.Context, userID uuid.UUID, period domain.Period) (domain.AttendanceStatus, error)
}

// BlogChecker отдаёт статус задачи «написать пост».
type BlogChecker interface {
	CheckCompletion(ctx context.Context, userID, periodID uuid.UUID) (domain.BlogStatus, error)
}

// CommentsChecker отдаёт статус задачи «комментировать».
type CommentsChecker interface {
	UserCommentStatus(ctx context.Context, userID, periodID uuid.UUID) (domain.CommentStatus, error)
}

// OnlineStatus — признак присутствия участника.
type OnlineStatus struct {
	IsOnline           bool
	LastActivity       *time.Time
	MinutesSinceActive int
}

// Service собирает сводки участников из трёх чекеров.
// Сводка всегда вычисляется заново из событий; кэшируется только командный агрегат.
type Service struct {
	users        domain.UserRepo
	attendance   AttendanceChecker
	blog         BlogChecker
	comments     CommentsChecker
	cache        domain.Cache
	onlineWindow time.Duration
}

// NewService создаёт агрегатор. onlineWindow <= 0 заменяется значением по умолчанию.
func NewService(users domain.UserRepo, attendance AttendanceChecker, blog BlogChecker, comments CommentsChecker, cache domain.Cache, onlineWindow time.Duration) *Service {
	if onlineWindow <= 0 {
		onlineWindow = DefaultOnlineWindow
	}
	return &Service{
		users:        users,
		attendance:   attendance,
		blog:         blog,
		comments:     comments,
		cache:        cache,
		onlineWindow: onlineWindow,
	}
}

// BuildSummary собирает сводку участника за период.
// commentPeriodID — период, по которому оцениваются комментарии (обычно
// предыдущий месяц); uuid.Nil означает «тот же период».
func (s *Service) BuildSummary(ctx context.Context, userID uuid.UUID, period domain.Period, commentPeriodID uuid.UUID, now time.Time) (domain.MemberSummary, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("участник: %w", err)
	}
	if commentPeriodID == uuid.Nil {
		commentPeriodID = period.ID
	}

	att, err := s.attendance.PeriodStats(ctx, userID, period)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("посещаемость: %w", err)
	}
	blogStatus, err := s.blog.CheckCompletion(ctx, userID, period.ID)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("посты: %w", err)
	}
	commentStatus, err := s.comments.UserCommentStatus(ctx, userID, commentPeriodID)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("комментарии: %w", err)
	}
	online, err := s.OnlineStatus(ctx, userID, now)
	if err != nil {
		return domain.MemberSummary{}, fmt.Errorf("активность: %w", err)
	}

	summary := domain.MemberSummary{
		User:                user,
		PeriodID:            period.ID,
		TotalTasks:          domain.TasksPerPeriod,
		BlogCompleted:       blogStatus.IsCompleted,
		CommentsCompleted:   commentStatus.IsCompleted,
		AttendanceCompleted: att.IsCompleted,
		CommentsMade:        commentStatus.CommentsGiven,
		AttendanceDays:      att.TotalDays,
		LastActivity:        online.LastActivity,
		IsOnline:            online.IsOnline,
		MinutesSinceActive:  online.MinutesSinceActive,
	}
	for _, done := range []bool{summary.BlogCompleted, summary.CommentsCompleted, summary.AttendanceCompleted} {
		if done {
			summary.CompletedTasks++
		}
	}
	summary.CompletionRate = domain.CompletionRate(summary.CompletedTasks, summary.TotalTasks)
	summary.Status = domain.ClassifyProgress(summary.CompletionRate)
	return summary, nil
}

// OnlineStatus определяет присутствие по последней активности.
// Активность — максимум таймстемпов событий посещаемости и отметок комментариев;
// время публикации постов намеренно не учитывается.
func (s *Service) OnlineStatus(ctx context.Context, userID uuid.UUID, now time.Time) (OnlineStatus, error) {
	last, err := s.users.LastActivityAt(ctx, userID)
	if err != nil {
		return OnlineStatus{}, fmt.Errorf("последняя активность: %w", err)
	}
	if last == nil {
		return OnlineStatus{MinutesSinceActive: -1}, nil
	}
	minutes := int(now.Sub(*last).Minutes())
	return OnlineStatus{
		IsOnline:           now.Sub(*last) <= s.onlineWindow,
		LastActivity:       last,
		MinutesSinceActive: minutes,
	}, nil
}

// TeamSummary сворачивает сводки всех участников за период.
// Пустая команда возвращает нули, а не ошибку. Результат кэшируется на минуту.
func (s *Service) TeamSummary(ctx context.Context, period domain.Period, commentPeriodID uuid.UUID, now time.Time) (domain.TeamSummary, error) {
	cacheKey := "team_summary:" + period.ID.String()
	if s.cache != nil {
		if raw, err := s.cache.Get(cacheKey); err == nil && len(raw) > 0 {
			var cached domain.TeamSummary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	start := time.Now()
	users, err := s.users.ListMembers(ctx)
	if err != nil {
		return domain.TeamSummary{}, fmt.Errorf("список участников: %w", err)
	}

	team := domain.TeamSummary{PeriodID: period.ID, TotalMembers: len(users)}
	rateSum := 0
	for _, u := range users {
		summary, err := s.BuildSummary(ctx, u.ID, period, commentPeriodID, now)
		if err != nil {
			return domain.TeamSummary{}, fmt.Errorf("сводка %s: %w", u.Name, err)
		}
		rateSum += summary.CompletionRate
		if summary.IsOnline {
			team.OnlineMembers++
		}
		if summary.BlogCompleted {
			team.BlogCompletedCount++
		}
		if summary.CommentsCompleted {
			team.CommentsCompletedCount++
		}
		if summary.AttendanceCompleted {
			team.AttendanceCompletedCount++
		}
		switch summary.Status {
		case domain.ProgressCompleted:
			team.CompletedMembers++
		case domain.ProgressGood:
			team.GoodMembers++
		case domain.ProgressFair:
			team.FairMembers++
		default:
			team.PoorMembers++
		}
	}
	if team.TotalMembers > 0 {
		team.AvgCompletionRate = domain.CompletionRate(rateSum, team.TotalMembers*100)
	}
	team.Grade = domain.TeamGrade(team.AvgCompletionRate)
	metrics.SummaryBuildSeconds.Observe(time.Since(start).Seconds())

	if s.cache != nil {
		if raw, err := json.Marshal(team); err == nil {
			_ = s.cache.Set(cacheKey, raw, teamSummaryCacheTTL)
		}
	}
	return team, nil
}
