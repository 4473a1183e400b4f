package period

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
)

// Service разрешает отчётные периоды относительно опорного момента времени.
// Все календарные вычисления ведутся в одном каноническом часовом поясе;
// ручная арифметика смещений не используется.
type Service struct {
	periods domain.PeriodRepo
	loc     *time.Location
}

// NewService создаёт резолвер периодов.
func NewService(periods domain.PeriodRepo, loc *time.Location) *Service {
	return &Service{periods: periods, loc: loc}
}

// ResolveCurrent возвращает период, в чей (год, месяц) попадает опорный момент.
// Отсутствие строки периода — ошибка конфигурации, не повод для повтора.
func (s *Service) ResolveCurrent(ctx context.Context, ref time.Time) (domain.Period, error) {
	local := ref.In(s.loc)
	p, err := s.periods.GetByYearMonth(ctx, local.Year(), int(local.Month()))
	if err != nil {
		return domain.Period{}, fmt.Errorf("текущий период %d-%02d: %w", local.Year(), int(local.Month()), err)
	}
	return p, nil
}

// ResolvePrevious возвращает период календарного месяца, предшествующего опорному.
// Комментарии оцениваются по постам прошлого месяца, поэтому переход через
// январь обрабатывается явно.
func (s *Service) ResolvePrevious(ctx context.Context, ref time.Time) (domain.Period, error) {
	local := ref.In(s.loc)
	year, month := local.Year(), int(local.Month())
	month--
	if month == 0 {
		month = 12
		year--
	}
	p, err := s.periods.GetByYearMonth(ctx, year, month)
	if err != nil {
		return domain.Period{}, fmt.Errorf("предыдущий период %d-%02d: %w", year, month, err)
	}
	return p, nil
}

// ByID возвращает период по идентификатору.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (domain.Period, error) {
	return s.periods.GetPeriodByID(ctx, id)
}

// ListAll возвращает все периоды, от новых к старым.
func (s *Service) ListAll(ctx context.Context) ([]domain.Period, error) {
	return s.periods.ListAll(ctx)
}

// CreatePeriod сохраняет новый отчётный период.
func (s *Service) CreatePeriod(ctx context.Context, p domain.Period) (domain.Period, error) {
	if p.EndDate.Before(p.StartDate) {
		return domain.Period{}, fmt.Errorf("%w: конец окна раньше начала", domain.ErrValidation)
	}
	return s.periods.CreatePeriod(ctx, p)
}

// DisplayLabel возвращает заголовок периода для шапки дашборда.
// Метка берётся из сохранённых года и месяца как есть: сдвиг на месяц,
// замеченный в одной из ревизий исходника, был багом.
func DisplayLabel(p domain.Period) string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
