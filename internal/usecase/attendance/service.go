package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/metrics"
)

// Еженедельная встреча проходит по средам; месячное требование —
// отметиться минимум в две среды.
const (
	DefaultTargetWeekday = time.Wednesday
	DefaultRequiredDays  = 2
)

// Границы «позднего» часа для флага календаря (23:00–24:00 локального дня).
const lateHourStart = 23

// Service считает посещаемость по сырым событиям чек-ина и чек-аута.
// Все агрегаты пересчитываются из событий при каждом запросе: поздно
// пришедший end меняет длительность задним числом, поэтому частичные
// обновления недопустимы.
type Service struct {
	events        domain.AttendanceRepo
	periods       domain.PeriodRepo
	queue         domain.ActivityQueue
	loc           *time.Location
	targetWeekday time.Weekday
	requiredDays  int
}

// NewService создаёт счётчик посещаемости. requiredDays <= 0 заменяется значением по умолчанию.
func NewService(events domain.AttendanceRepo, periods domain.PeriodRepo, queue domain.ActivityQueue, loc *time.Location, requiredDays int) *Service {
	if requiredDays <= 0 {
		requiredDays = DefaultRequiredDays
	}
	return &Service{
		events:        events,
		periods:       periods,
		queue:         queue,
		loc:           loc,
		targetWeekday: DefaultTargetWeekday,
		requiredDays:  requiredDays,
	}
}

// DailySessions строит сессии одного локального дня из его событий.
// События сортируются по времени; start при уже открытой сессии закрывает её
// с нулевой длительностью, end без открытой сессии отбрасывается.
// Функция детерминирована и не имеет скрытого состояния.
func DailySessions(events []domain.AttendanceEvent) []domain.AttendanceSession {
	sorted := make([]domain.AttendanceEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var sessions []domain.AttendanceSession
	var open *domain.AttendanceSession
	for _, ev := range sorted {
		switch ev.Kind {
		case domain.EventStart:
			if open != nil {
				open.End = open.Start
				open.Open = false
				sessions = append(sessions, *open)
			}
			open = &domain.AttendanceSession{Start: ev.Time, Open: true}
		case domain.EventEnd:
			if open == nil {
				continue
			}
			open.End = ev.Time
			open.Open = false
			sessions = append(sessions, *open)
			open = nil
		}
	}
	if open != nil {
		sessions = append(sessions, *open)
	}
	return sessions
}

// CurrentState выводит состояние кнопки из сегодняшних сессий.
func CurrentState(sessions []domain.AttendanceSession) domain.CheckState {
	if len(sessions) == 0 {
		return domain.CheckStateStart
	}
	if sessions[len(sessions)-1].Open {
		return domain.CheckStateEnd
	}
	return domain.CheckStateRestart
}

// IsCompleted проверяет месячное требование по числу целевых дней недели.
func (s *Service) IsCompleted(targetWeekdayCount int) bool {
	return targetWeekdayCount >= s.requiredDays
}

// PeriodStats пересчитывает статус посещаемости пользователя за период.
func (s *Service) PeriodStats(ctx context.Context, userID uuid.UUID, p domain.Period) (domain.AttendanceStatus, error) {
	start := time.Now()
	events, err := s.events.ListEventsForPeriod(ctx, userID, p.ID)
	if err != nil {
		return domain.AttendanceStatus{}, fmt.Errorf("события периода: %w", err)
	}

	byDay := make(map[time.Time][]domain.AttendanceEvent)
	for _, ev := range events {
		local := ev.Time.In(s.loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
		byDay[day] = append(byDay[day], ev)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	status := domain.AttendanceStatus{UserID: userID, PeriodID: p.ID}
	for _, day := range days {
		sessions := DailySessions(byDay[day])
		if len(sessions) == 0 {
			continue
		}
		var total time.Duration
		for _, sess := range sessions {
			total += sess.Duration()
		}
		status.Days = append(status.Days, domain.DailyStat{
			Date:         day,
			Weekday:      day.Weekday(),
			SessionCount: len(sessions),
			TotalMinutes: int(total.Minutes()),
			AttendedLate: anyLateSession(sessions, day, s.loc),
		})
		if total <= 0 || !p.ContainsDay(day) {
			continue
		}
		status.TotalDays++
		if day.Weekday() == s.targetWeekday {
			status.WednesdayCount++
		}
	}
	status.IsCompleted = s.IsCompleted(status.WednesdayCount)
	metrics.SummaryBuildSeconds.Observe(time.Since(start).Seconds())
	return status, nil
}

// DailySummaryFor возвращает сводку одного локального дня.
func (s *Service) DailySummaryFor(ctx context.Context, userID uuid.UUID, date time.Time) (domain.DailySummary, error) {
	local := date.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := s.events.ListEventsBetween(ctx, userID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("события дня: %w", err)
	}
	sessions := DailySessions(events)
	return domain.DailySummary{
		Date:         dayStart,
		SessionCount: len(sessions),
		State:        CurrentState(sessions),
		Sessions:     sessions,
	}, nil
}

// RecordEvent добавляет событие чек-ина или чек-аута.
// Вставка только добавляет строку; все производные значения пересчитываются
// при следующем чтении.
func (s *Service) RecordEvent(ctx context.Context, userID, periodID uuid.UUID, kind domain.EventKind, now time.Time) (domain.AttendanceEvent, error) {
	if userID == uuid.Nil {
		return domain.AttendanceEvent{}, domain.ErrUnauthenticated
	}
	if kind != domain.EventStart && kind != domain.EventEnd {
		return domain.AttendanceEvent{}, fmt.Errorf("%w: недопустимый тип события %q", domain.ErrValidation, kind)
	}
	period, err := s.periods.GetPeriodByID(ctx, periodID)
	if err != nil {
		return domain.AttendanceEvent{}, fmt.Errorf("период события: %w", err)
	}

	event := domain.AttendanceEvent{
		ID:       uuid.New(),
		UserID:   userID,
		PeriodID: period.ID,
		Kind:     kind,
		Time:     now.UTC(),
	}
	inserted, err := s.events.InsertEvent(ctx, event)
	if err != nil {
		return domain.AttendanceEvent{}, fmt.Errorf("запись события: %w", err)
	}
	metrics.IncAttendanceEvent(string(kind))
	if s.queue != nil {
		_ = s.queue.Publish(ctx, domain.ActivityEvent{
			Kind:       domain.ActivityAttendance,
			UserID:     userID,
			PeriodID:   period.ID,
			OccurredAt: inserted.Time,
		})
	}
	return inserted, nil
}

// anyLateSession проверяет пересечение закрытых сессий с интервалом 23:00–24:00 дня.
func anyLateSession(sessions []domain.AttendanceSession, day time.Time, loc *time.Location) bool {
	lateFrom := time.Date(day.Year(), day.Month(), day.Day(), lateHourStart, 0, 0, 0, loc)
	lateTo := lateFrom.Add(time.Hour)
	for _, sess := range sessions {
		if sess.Open || sess.Duration() <= 0 {
			continue
		}
		if sess.Start.Before(lateTo) && sess.End.After(lateFrom) {
			return true
		}
	}
	return false
}
