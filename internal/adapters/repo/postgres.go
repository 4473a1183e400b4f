package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo       = (*Postgres)(nil)
	_ domain.PeriodRepo     = (*Postgres)(nil)
	_ domain.AttendanceRepo = (*Postgres)(nil)
	_ domain.BlogRepo       = (*Postgres)(nil)
	_ domain.CommentRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// GetUser возвращает участника.
func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, name, email, is_admin, created_at
FROM users WHERE id=$1
`, id).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_id", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return user, err
}

// ListMembers возвращает всех участников в порядке регистрации.
func (p *Postgres) ListMembers(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, name, email, is_admin, created_at
FROM users
ORDER BY created_at
`)
	metrics.ObserveNetworkRequest("postgres", "users_list_members", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// LastActivityAt возвращает максимум среди событий посещаемости и отметок
// комментариев участника. Посты не учитываются.
func (p *Postgres) LastActivityAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var last *time.Time
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT GREATEST(
    (SELECT MAX(created_at) FROM attendance_records WHERE user_id=$1),
    (SELECT MAX(created_at) FROM comment_records WHERE commenter_id=$1)
)
`, userID).Scan(&last)
	metrics.ObserveNetworkRequest("postgres", "users_last_activity", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return last, err
}

// GetByYearMonth возвращает период по году и месяцу.
func (p *Postgres) GetByYearMonth(ctx context.Context, year, month int) (domain.Period, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var period domain.Period
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, year, month, start_date, end_date, created_at
FROM monthly_periods WHERE year=$1 AND month=$2
`, year, month).Scan(&period.ID, &period.Year, &period.Month, &period.StartDate, &period.EndDate, &period.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "periods_get_by_year_month", "monthly_periods", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Period{}, domain.ErrPeriodNotFound
	}
	return period, err
}

// GetPeriodByID возвращает период по идентификатору.
func (p *Postgres) GetPeriodByID(ctx context.Context, id uuid.UUID) (domain.Period, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var period domain.Period
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, year, month, start_date, end_date, created_at
FROM monthly_periods WHERE id=$1
`, id).Scan(&period.ID, &period.Year, &period.Month, &period.StartDate, &period.EndDate, &period.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "periods_get_by_id", "monthly_periods", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Period{}, domain.ErrPeriodNotFound
	}
	return period, err
}

// ListAll возвращает все периоды от новых к старым.
func (p *Postgres) ListAll(ctx context.Context) ([]domain.Period, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, year, month, start_date, end_date, created_at
FROM monthly_periods
ORDER BY year DESC, month DESC
`)
	metrics.ObserveNetworkRequest("postgres", "periods_list_all", "monthly_periods", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []domain.Period
	for rows.Next() {
		var period domain.Period
		if err := rows.Scan(&period.ID, &period.Year, &period.Month, &period.StartDate, &period.EndDate, &period.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

// CreatePeriod сохраняет период. Пара (year, month) уникальна.
func (p *Postgres) CreatePeriod(ctx context.Context, period domain.Period) (domain.Period, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if period.ID == uuid.Nil {
		period.ID = uuid.New()
	}
	if period.Year <= 0 || period.Month < 1 || period.Month > 12 {
		return domain.Period{}, fmt.Errorf("%w: некорректные год или месяц", domain.ErrValidation)
	}
	if period.EndDate.Before(period.StartDate) {
		return domain.Period{}, fmt.Errorf("%w: конец окна раньше начала", domain.ErrValidation)
	}

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO monthly_periods (id, year, month, start_date, end_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, year, month, start_date, end_date, created_at
`, period.ID, period.Year, period.Month, period.StartDate, period.EndDate).Scan(
		&period.ID, &period.Year, &period.Month, &period.StartDate, &period.EndDate, &period.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "periods_insert", "monthly_periods", start, err)
	if err != nil {
		return domain.Period{}, err
	}
	return period, nil
}
