package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// ListEventsBetween возвращает события пользователя в полуинтервале [from, to).
func (p *Postgres) ListEventsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceEvent, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, period_id, kind, event_time, created_at
FROM attendance_records
WHERE user_id=$1 AND event_time >= $2 AND event_time < $3
ORDER BY event_time
`, userID, from, to)
	metrics.ObserveNetworkRequest("postgres", "attendance_list_between", "attendance_records", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendanceEvents(rows)
}

// ListEventsForPeriod возвращает все события пользователя в периоде.
func (p *Postgres) ListEventsForPeriod(ctx context.Context, userID, periodID uuid.UUID) ([]domain.AttendanceEvent, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, period_id, kind, event_time, created_at
FROM attendance_records
WHERE user_id=$1 AND period_id=$2
ORDER BY event_time
`, userID, periodID)
	metrics.ObserveNetworkRequest("postgres", "attendance_list_for_period", "attendance_records", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttendanceEvents(rows)
}

func scanAttendanceEvents(rows pgx.Rows) ([]domain.AttendanceEvent, error) {
	var events []domain.AttendanceEvent
	for rows.Next() {
		var e domain.AttendanceEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.PeriodID, &e.Kind, &e.Time, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertEvent добавляет событие посещаемости. События никогда не изменяются.
func (p *Postgres) InsertEvent(ctx context.Context, event domain.AttendanceEvent) (domain.AttendanceEvent, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO attendance_records (id, user_id, period_id, kind, event_time)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, period_id, kind, event_time, created_at
`, event.ID, event.UserID, event.PeriodID, event.Kind, event.Time).Scan(
		&event.ID, &event.UserID, &event.PeriodID, &event.Kind, &event.Time, &event.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "attendance_insert", "attendance_records", start, err)
	if err != nil {
		return domain.AttendanceEvent{}, err
	}
	return event, nil
}

// GetPost возвращает пост по идентификатору.
func (p *Postgres) GetPost(ctx context.Context, id uuid.UUID) (domain.BlogPost, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var post domain.BlogPost
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, user_id, period_id, github_issue_url, submitted_at, created_at
FROM blog_posts WHERE id=$1
`, id).Scan(&post.ID, &post.UserID, &post.PeriodID, &post.IssueURL, &post.SubmittedAt, &post.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "blog_posts_get", "blog_posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BlogPost{}, domain.ErrNotFound
	}
	return post, err
}

// ListUserPosts возвращает посты пользователя за период.
func (p *Postgres) ListUserPosts(ctx context.Context, userID, periodID uuid.UUID) ([]domain.BlogPost, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, period_id, github_issue_url, submitted_at, created_at
FROM blog_posts
WHERE user_id=$1 AND period_id=$2
ORDER BY submitted_at
`, userID, periodID)
	metrics.ObserveNetworkRequest("postgres", "blog_posts_list_user", "blog_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlogPosts(rows)
}

// ListPeriodPosts возвращает посты периода. excludeUser исключает автора, uuid.Nil — без исключения.
func (p *Postgres) ListPeriodPosts(ctx context.Context, periodID, excludeUser uuid.UUID) ([]domain.BlogPost, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, period_id, github_issue_url, submitted_at, created_at
FROM blog_posts
WHERE period_id=$1 AND ($2::uuid IS NULL OR user_id <> $2)
ORDER BY submitted_at
`, periodID, nullableUUID(excludeUser))
	metrics.ObserveNetworkRequest("postgres", "blog_posts_list_period", "blog_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlogPosts(rows)
}

func scanBlogPosts(rows pgx.Rows) ([]domain.BlogPost, error) {
	var posts []domain.BlogPost
	for rows.Next() {
		var post domain.BlogPost
		if err := rows.Scan(&post.ID, &post.UserID, &post.PeriodID, &post.IssueURL, &post.SubmittedAt, &post.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// InsertPost сохраняет ссылку на пост.
func (p *Postgres) InsertPost(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO blog_posts (id, user_id, period_id, github_issue_url, submitted_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, period_id, github_issue_url, submitted_at, created_at
`, post.ID, post.UserID, post.PeriodID, post.IssueURL, post.SubmittedAt).Scan(
		&post.ID, &post.UserID, &post.PeriodID, &post.IssueURL, &post.SubmittedAt, &post.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "blog_posts_insert", "blog_posts", start, err)
	if err != nil {
		return domain.BlogPost{}, err
	}
	return post, nil
}

// ListGivenBy возвращает отметки пользователя по указанным постам.
func (p *Postgres) ListGivenBy(ctx context.Context, commenterID uuid.UUID, postIDs []uuid.UUID) ([]domain.CommentRecord, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, commenter_id, blog_post_id, created_at
FROM comment_records
WHERE commenter_id=$1 AND blog_post_id = ANY($2)
ORDER BY created_at
`, commenterID, postIDs)
	metrics.ObserveNetworkRequest("postgres", "comment_records_list_given", "comment_records", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.CommentRecord
	for rows.Next() {
		var rec domain.CommentRecord
		if err := rows.Scan(&rec.ID, &rec.CommenterID, &rec.BlogPostID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountReceivedBy считает отметки, полученные постами автора за период.
func (p *Postgres) CountReceivedBy(ctx context.Context, authorID, periodID uuid.UUID) (int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM comment_records cr
JOIN blog_posts bp ON bp.id = cr.blog_post_id
WHERE bp.user_id=$1 AND bp.period_id=$2
`, authorID, periodID).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "comment_records_count_received", "comment_records", start, err)
	return count, err
}

// Toggle вставляет отметку, а при конфликте по (commenter, post) удаляет её.
// Гонка двух одинаковых переключений гасится уникальным ограничением.
func (p *Postgres) Toggle(ctx context.Context, commenterID, postID uuid.UUID) (domain.ToggleResult, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO comment_records (id, commenter_id, blog_post_id)
VALUES ($1, $2, $3)
ON CONFLICT (commenter_id, blog_post_id) DO NOTHING
`, uuid.New(), commenterID, postID)
	metrics.ObserveNetworkRequest("postgres", "comment_records_toggle_insert", "comment_records", start, err)
	if err != nil {
		return "", err
	}
	if res.RowsAffected() > 0 {
		return domain.ToggleInserted, nil
	}

	start = time.Now()
	_, err = p.pool.Exec(ctx, `
DELETE FROM comment_records WHERE commenter_id=$1 AND blog_post_id=$2
`, commenterID, postID)
	metrics.ObserveNetworkRequest("postgres", "comment_records_toggle_delete", "comment_records", start, err)
	if err != nil {
		return "", err
	}
	return domain.ToggleRemoved, nil
}
