package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gimbap-dashboard/internal/domain"
	infrahttp "gimbap-dashboard/internal/infra/http"
	"gimbap-dashboard/internal/usecase/period"
)

// PeriodResolver разрешает отчётные периоды.
type PeriodResolver interface {
	ResolveCurrent(ctx context.Context, ref time.Time) (domain.Period, error)
	ResolvePrevious(ctx context.Context, ref time.Time) (domain.Period, error)
	ByID(ctx context.Context, id uuid.UUID) (domain.Period, error)
	ListAll(ctx context.Context) ([]domain.Period, error)
	CreatePeriod(ctx context.Context, p domain.Period) (domain.Period, error)
}

// AttendanceService считает посещаемость.
type AttendanceService interface {
	PeriodStats(ctx context.Context, userID uuid.UUID, p domain.Period) (domain.AttendanceStatus, error)
	DailySummaryFor(ctx context.Context, userID uuid.UUID, date time.Time) (domain.DailySummary, error)
	RecordEvent(ctx context.Context, userID, periodID uuid.UUID, kind domain.EventKind, now time.Time) (domain.AttendanceEvent, error)
}

// BlogService ведёт посты.
type BlogService interface {
	CheckCompletion(ctx context.Context, userID, periodID uuid.UUID) (domain.BlogStatus, error)
	CreatePost(ctx context.Context, userID, periodID uuid.UUID, rawURL string, now time.Time) (domain.BlogPost, error)
}

// CommentsService ведёт отметки комментариев.
type CommentsService interface {
	EligibleTargets(ctx context.Context, userID, periodID uuid.UUID) ([]domain.CommentTarget, error)
	UserCommentStatus(ctx context.Context, userID, periodID uuid.UUID) (domain.CommentStatus, error)
	ToggleComment(ctx context.Context, commenterID, postID uuid.UUID) (domain.ToggleResult, error)
	Threshold() int
}

// MemberService собирает сводки.
type MemberService interface {
	BuildSummary(ctx context.Context, userID uuid.UUID, p domain.Period, commentPeriodID uuid.UUID, now time.Time) (domain.MemberSummary, error)
	TeamSummary(ctx context.Context, p domain.Period, commentPeriodID uuid.UUID, now time.Time) (domain.TeamSummary, error)
}

// Handler обслуживает REST API дашборда.
type Handler struct {
	log        zerolog.Logger
	periods    PeriodResolver
	attendance AttendanceService
	blog       BlogService
	comments   CommentsService
	members    MemberService
	users      domain.UserRepo
	now        func() time.Time
}

// NewHandler создаёт обработчик.
func NewHandler(log zerolog.Logger, periods PeriodResolver, attendance AttendanceService, blog BlogService, comments CommentsService, members MemberService, users domain.UserRepo) *Handler {
	return &Handler{
		log:        log,
		periods:    periods,
		attendance: attendance,
		blog:       blog,
		comments:   comments,
		members:    members,
		users:      users,
		now:        time.Now,
	}
}

// Register вешает маршруты API на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/periods", h.handleListPeriods)
		r.Get("/periods/current", h.handleCurrentPeriod)
		r.Get("/periods/previous", h.handlePreviousPeriod)
		r.Post("/periods", h.handleCreatePeriod)

		r.Get("/checklist/blog", h.handleBlogStatus)
		r.Get("/checklist/attendance", h.handleAttendanceStatus)
		r.Get("/checklist/comments", h.handleCommentStatus)

		r.Get("/attendance/today", h.handleAttendanceToday)
		r.Post("/attendance/events", h.handleAttendanceEvent)

		r.Post("/blog/posts", h.handleCreatePost)

		r.Get("/comments/targets", h.handleCommentTargets)
		r.Post("/comments/toggle", h.handleCommentToggle)

		r.Get("/members/me", h.handleMemberSummary)
		r.Get("/members/summary", h.handleAllMemberSummaries)
		r.Get("/team/summary", h.handleTeamSummary)
	})
}

// resolvePeriod возвращает период из query-параметра period_id, а при его
// отсутствии — текущий период.
func (h *Handler) resolvePeriod(r *http.Request) (domain.Period, error) {
	raw := r.URL.Query().Get("period_id")
	if raw == "" {
		return h.periods.ResolveCurrent(r.Context(), h.now())
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.Period{}, fmt.Errorf("%w: некорректный period_id", domain.ErrValidation)
	}
	return h.periods.ByID(r.Context(), id)
}

// commentPeriodID возвращает период для оценки комментариев: предыдущий месяц,
// а если его строки нет — текущий период.
func (h *Handler) commentPeriodID(ctx context.Context, current domain.Period) uuid.UUID {
	prev, err := h.periods.ResolvePrevious(ctx, h.now())
	if err != nil {
		return current.ID
	}
	return prev.ID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type periodResponse struct {
	ID        uuid.UUID `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Label     string    `json:"label"`
}

func toPeriodResponse(p domain.Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		Year:      p.Year,
		Month:     p.Month,
		StartDate: p.StartDate.Format("2006-01-02"),
		EndDate:   p.EndDate.Format("2006-01-02"),
		Label:     period.DisplayLabel(p),
	}
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.periods.ListAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("api: список периодов")
		infrahttp.WriteDomainError(w, err)
		return
	}
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.periods.ResolveCurrent(r.Context(), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(p))
}

func (h *Handler) handlePreviousPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.periods.ResolvePrevious(r.Context(), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(p))
}

type createPeriodRequest struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	userID := infrahttp.UserID(r)
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	if !user.IsAdmin {
		infrahttp.WriteError(w, http.StatusForbidden, fmt.Errorf("создание периодов доступно только администратору"))
		return
	}

	var req createPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, fmt.Errorf("некорректное тело запроса"))
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		infrahttp.WriteDomainError(w, fmt.Errorf("%w: некорректная start_date", domain.ErrValidation))
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		infrahttp.WriteDomainError(w, fmt.Errorf("%w: некорректная end_date", domain.ErrValidation))
		return
	}

	created, err := h.periods.CreatePeriod(r.Context(), domain.Period{
		Year:      req.Year,
		Month:     req.Month,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.log.Error().Err(err).Int("year", req.Year).Int("month", req.Month).Msg("api: создание периода")
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodResponse(created))
}

type blogStatusResponse struct {
	PeriodID    uuid.UUID      `json:"period_id"`
	IsCompleted bool           `json:"is_completed"`
	PostCount   int            `json:"post_count"`
	Posts       []postResponse `json:"posts"`
}

type postResponse struct {
	ID          uuid.UUID `json:"id"`
	IssueURL    string    `json:"github_issue_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (h *Handler) handleBlogStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolvePeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	status, err := h.blog.CheckCompletion(r.Context(), infrahttp.UserID(r), p.ID)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	out := blogStatusResponse{
		PeriodID:    status.PeriodID,
		IsCompleted: status.IsCompleted,
		PostCount:   status.PostCount,
		Posts:       make([]postResponse, 0, len(status.Posts)),
	}
	for _, post := range status.Posts {
		out.Posts = append(out.Posts, postResponse{ID: post.ID, IssueURL: post.IssueURL, SubmittedAt: post.SubmittedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type dailyStatResponse struct {
	Date         string `json:"date"`
	Weekday      string `json:"weekday"`
	SessionCount int    `json:"session_count"`
	TotalMinutes int    `json:"total_minutes"`
	AttendedLate bool   `json:"attended_late"`
	Bucket       string `json:"duration_bucket"`
}

type attendanceStatusResponse struct {
	PeriodID       uuid.UUID           `json:"period_id"`
	WednesdayCount int                 `json:"wednesday_count"`
	TotalDays      int                 `json:"total_days"`
	IsCompleted    bool                `json:"is_completed"`
	Days           []dailyStatResponse `json:"days"`
}

func (h *Handler) handleAttendanceStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolvePeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	status, err := h.attendance.PeriodStats(r.Context(), infrahttp.UserID(r), p)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	out := attendanceStatusResponse{
		PeriodID:       status.PeriodID,
		WednesdayCount: status.WednesdayCount,
		TotalDays:      status.TotalDays,
		IsCompleted:    status.IsCompleted,
		Days:           make([]dailyStatResponse, 0, len(status.Days)),
	}
	for _, day := range status.Days {
		out.Days = append(out.Days, dailyStatResponse{
			Date:         day.Date.Format("2006-01-02"),
			Weekday:      day.Weekday.String(),
			SessionCount: day.SessionCount,
			TotalMinutes: day.TotalMinutes,
			AttendedLate: day.AttendedLate,
			Bucket:       string(day.Bucket()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type commentStatusResponse struct {
	PeriodID             uuid.UUID `json:"period_id"`
	CommentsGiven        int       `json:"comments_given"`
	UniquePostsCommented int       `json:"unique_posts_commented"`
	CommentsReceived     int       `json:"comments_received"`
	Threshold            int       `json:"threshold"`
	IsCompleted          bool      `json:"is_completed"`
}

func (h *Handler) handleCommentStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolveCommentPeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	status, err := h.comments.UserCommentStatus(r.Context(), infrahttp.UserID(r), p.ID)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentStatusResponse{
		PeriodID:             status.PeriodID,
		CommentsGiven:        status.CommentsGiven,
		UniquePostsCommented: status.UniquePostsCommented,
		CommentsReceived:     status.CommentsReceived,
		Threshold:            h.comments.Threshold(),
		IsCompleted:          status.IsCompleted,
	})
}

// resolveCommentPeriod отдаёт период для задачи комментариев: явный period_id,
// иначе предыдущий месяц, а без его строки — текущий.
func (h *Handler) resolveCommentPeriod(r *http.Request) (domain.Period, error) {
	if r.URL.Query().Get("period_id") != "" {
		return h.resolvePeriod(r)
	}
	prev, err := h.periods.ResolvePrevious(r.Context(), h.now())
	if err == nil {
		return prev, nil
	}
	return h.periods.ResolveCurrent(r.Context(), h.now())
}

type sessionResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Open  bool      `json:"open"`
}

type dailySummaryResponse struct {
	Date         string            `json:"date"`
	SessionCount int               `json:"session_count"`
	State        string            `json:"state"`
	Sessions     []sessionResponse `json:"sessions"`
}

func (h *Handler) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendance.DailySummaryFor(r.Context(), infrahttp.UserID(r), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	out := dailySummaryResponse{
		Date:         summary.Date.Format("2006-01-02"),
		SessionCount: summary.SessionCount,
		State:        string(summary.State),
		Sessions:     make([]sessionResponse, 0, len(summary.Sessions)),
	}
	for _, sess := range summary.Sessions {
		out.Sessions = append(out.Sessions, sessionResponse{Start: sess.Start, End: sess.End, Open: sess.Open})
	}
	writeJSON(w, http.StatusOK, out)
}

type attendanceEventRequest struct {
	PeriodID uuid.UUID `json:"period_id"`
	Kind     string    `json:"kind"`
}

func (h *Handler) handleAttendanceEvent(w http.ResponseWriter, r *http.Request) {
	var req attendanceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, fmt.Errorf("некорректное тело запроса"))
		return
	}
	event, err := h.attendance.RecordEvent(r.Context(), infrahttp.UserID(r), req.PeriodID, domain.EventKind(req.Kind), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         event.ID,
		"kind":       string(event.Kind),
		"event_time": event.Time,
	})
}

type createPostRequest struct {
	PeriodID uuid.UUID `json:"period_id"`
	IssueURL string    `json:"github_issue_url"`
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, fmt.Errorf("некорректное тело запроса"))
		return
	}
	post, err := h.blog.CreatePost(r.Context(), infrahttp.UserID(r), req.PeriodID, req.IssueURL, h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, postResponse{ID: post.ID, IssueURL: post.IssueURL, SubmittedAt: post.SubmittedAt})
}

type commentTargetResponse struct {
	PostID       uuid.UUID `json:"post_id"`
	AuthorName   string    `json:"author_name"`
	IssueURL     string    `json:"github_issue_url"`
	HasCommented bool      `json:"has_commented"`
}

func (h *Handler) handleCommentTargets(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolveCommentPeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	targets, err := h.comments.EligibleTargets(r.Context(), infrahttp.UserID(r), p.ID)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	out := make([]commentTargetResponse, 0, len(targets))
	for _, target := range targets {
		out = append(out, commentTargetResponse{
			PostID:       target.Post.ID,
			AuthorName:   target.AuthorName,
			IssueURL:     target.Post.IssueURL,
			HasCommented: target.HasCommented,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type commentToggleRequest struct {
	PostID uuid.UUID `json:"post_id"`
}

func (h *Handler) handleCommentToggle(w http.ResponseWriter, r *http.Request) {
	var req commentToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, fmt.Errorf("некорректное тело запроса"))
		return
	}
	result, err := h.comments.ToggleComment(r.Context(), infrahttp.UserID(r), req.PostID)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": string(result)})
}

type memberSummaryResponse struct {
	UserID              uuid.UUID  `json:"user_id"`
	Name                string     `json:"name"`
	AvatarInitial       string     `json:"avatar_initial"`
	CompletedTasks      int        `json:"completed_tasks"`
	TotalTasks          int        `json:"total_tasks"`
	CompletionRate      int        `json:"completion_rate"`
	Status              string     `json:"progress_status"`
	BlogCompleted       bool       `json:"blog_completed"`
	CommentsCompleted   bool       `json:"comments_completed"`
	AttendanceCompleted bool       `json:"attendance_completed"`
	CommentsMade        int        `json:"comments_made"`
	AttendanceDays      int        `json:"attendance_days"`
	IsOnline            bool       `json:"is_online"`
	LastActivity        *time.Time `json:"last_activity,omitempty"`
	MinutesSinceActive  int        `json:"minutes_since_active"`
}

func toMemberSummaryResponse(s domain.MemberSummary) memberSummaryResponse {
	return memberSummaryResponse{
		UserID:              s.User.ID,
		Name:                s.User.Name,
		AvatarInitial:       s.User.AvatarInitial(),
		CompletedTasks:      s.CompletedTasks,
		TotalTasks:          s.TotalTasks,
		CompletionRate:      s.CompletionRate,
		Status:              string(s.Status),
		BlogCompleted:       s.BlogCompleted,
		CommentsCompleted:   s.CommentsCompleted,
		AttendanceCompleted: s.AttendanceCompleted,
		CommentsMade:        s.CommentsMade,
		AttendanceDays:      s.AttendanceDays,
		IsOnline:            s.IsOnline,
		LastActivity:        s.LastActivity,
		MinutesSinceActive:  s.MinutesSinceActive,
	}
}

func (h *Handler) handleMemberSummary(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolvePeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	summary, err := h.members.BuildSummary(r.Context(), infrahttp.UserID(r), p, h.commentPeriodID(r.Context(), p), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberSummaryResponse(summary))
}

func (h *Handler) handleAllMemberSummaries(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolvePeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	users, err := h.users.ListMembers(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("api: список участников")
		infrahttp.WriteDomainError(w, err)
		return
	}
	commentPeriodID := h.commentPeriodID(r.Context(), p)
	out := make([]memberSummaryResponse, 0, len(users))
	for _, u := range users {
		summary, err := h.members.BuildSummary(r.Context(), u.ID, p, commentPeriodID, h.now())
		if err != nil {
			h.log.Error().Err(err).Str("user", u.Name).Msg("api: сводка участника")
			infrahttp.WriteDomainError(w, err)
			return
		}
		out = append(out, toMemberSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, out)
}

type teamSummaryResponse struct {
	PeriodID                 uuid.UUID `json:"period_id"`
	TotalMembers             int       `json:"total_members"`
	OnlineMembers            int       `json:"online_members"`
	AvgCompletionRate        int       `json:"avg_completion_rate"`
	CompletedMembers         int       `json:"completed_members"`
	GoodMembers              int       `json:"good_members"`
	FairMembers              int       `json:"fair_members"`
	PoorMembers              int       `json:"poor_members"`
	BlogCompletedCount       int       `json:"blog_completed_count"`
	CommentsCompletedCount   int       `json:"comments_completed_count"`
	AttendanceCompletedCount int       `json:"attendance_completed_count"`
	Grade                    string    `json:"grade"`
}

func (h *Handler) handleTeamSummary(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolvePeriod(r)
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	team, err := h.members.TeamSummary(r.Context(), p, h.commentPeriodID(r.Context(), p), h.now())
	if err != nil {
		infrahttp.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teamSummaryResponse{
		PeriodID:                 team.PeriodID,
		TotalMembers:             team.TotalMembers,
		OnlineMembers:            team.OnlineMembers,
		AvgCompletionRate:        team.AvgCompletionRate,
		CompletedMembers:         team.CompletedMembers,
		GoodMembers:              team.GoodMembers,
		FairMembers:              team.FairMembers,
		PoorMembers:              team.PoorMembers,
		BlogCompletedCount:       team.BlogCompletedCount,
		CommentsCompletedCount:   team.CommentsCompletedCount,
		AttendanceCompletedCount: team.AttendanceCompletedCount,
		Grade:                    team.Grade,
	})
}
