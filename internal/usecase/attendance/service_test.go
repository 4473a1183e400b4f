package attendance

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"gimbap-dashboard/internal/domain"
)

type stubAttendanceRepo struct {
	events   []domain.AttendanceEvent
	inserted []domain.AttendanceEvent
}

func (s *stubAttendanceRepo) ListEventsBetween(_ context.Context, _ uuid.UUID, from, to time.Time) ([]domain.AttendanceEvent, error) {
	var out []domain.AttendanceEvent
	for _, ev := range s.events {
		if !ev.Time.Before(from) && ev.Time.Before(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubAttendanceRepo) ListEventsForPeriod(context.Context, uuid.UUID, uuid.UUID) ([]domain.AttendanceEvent, error) {
	return s.events, nil
}

func (s *stubAttendanceRepo) InsertEvent(_ context.Context, ev domain.AttendanceEvent) (domain.AttendanceEvent, error) {
	s.inserted = append(s.inserted, ev)
	return ev, nil
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

type stubQueue struct {
	published []domain.ActivityEvent
}

func (s *stubQueue) Publish(_ context.Context, ev domain.ActivityEvent) error {
	s.published = append(s.published, ev)
	return nil
}

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("не удалось загрузить часовой пояс: %v", err)
	}
	return loc
}

func event(kind domain.EventKind, at time.Time) domain.AttendanceEvent {
	return domain.AttendanceEvent{ID: uuid.New(), Kind: kind, Time: at}
}

// augustPeriod — август 2025, среды: 6, 13, 20, 27 число.
func augustPeriod() domain.Period {
	return domain.Period{
		ID:        uuid.New(),
		Year:      2025,
		Month:     8,
		StartDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestDailySessionsPairsStartEnd(t *testing.T) {
	loc := seoul(t)
	base := time.Date(2025, 8, 6, 21, 0, 0, 0, loc)
	events := []domain.AttendanceEvent{
		event(domain.EventEnd, base.Add(45*time.Minute)),
		event(domain.EventStart, base),
	}
	sessions := DailySessions(events)
	if len(sessions) != 1 {
		t.Fatalf("ожидали 1 сессию, получили %d", len(sessions))
	}
	if sessions[0].Duration() != 45*time.Minute {
		t.Fatalf("ожидали 45 минут, получили %v", sessions[0].Duration())
	}
}

func TestDailySessionsIdempotent(t *testing.T) {
	loc := seoul(t)
	base := time.Date(2025, 8, 6, 20, 0, 0, 0, loc)
	events := []domain.AttendanceEvent{
		event(domain.EventStart, base),
		event(domain.EventEnd, base.Add(30*time.Minute)),
		event(domain.EventStart, base.Add(time.Hour)),
	}
	first := DailySessions(events)
	second := DailySessions(events)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("повторный вызов дал другой результат: %v против %v", first, second)
	}
}

func TestDailySessionsDiscardsStrayEnd(t *testing.T) {
	loc := seoul(t)
	events := []domain.AttendanceEvent{
		event(domain.EventEnd, time.Date(2025, 8, 6, 9, 0, 0, 0, loc)),
	}
	if sessions := DailySessions(events); len(sessions) != 0 {
		t.Fatalf("end без start должен отбрасываться, получили %d сессий", len(sessions))
	}
}

func TestDailySessionsDoubleStartClosesWithZeroDuration(t *testing.T) {
	loc := seoul(t)
	base := time.Date(2025, 8, 6, 21, 0, 0, 0, loc)
	events := []domain.AttendanceEvent{
		event(domain.EventStart, base),
		event(domain.EventStart, base.Add(10*time.Minute)),
		event(domain.EventEnd, base.Add(40*time.Minute)),
	}
	sessions := DailySessions(events)
	if len(sessions) != 2 {
		t.Fatalf("ожидали 2 сессии, получили %d", len(sessions))
	}
	if sessions[0].Duration() != 0 {
		t.Fatalf("прерванная сессия должна иметь нулевую длительность, получили %v", sessions[0].Duration())
	}
	if sessions[1].Duration() != 30*time.Minute {
		t.Fatalf("ожидали 30 минут, получили %v", sessions[1].Duration())
	}
}

func TestCurrentState(t *testing.T) {
	loc := seoul(t)
	base := time.Date(2025, 8, 6, 21, 0, 0, 0, loc)

	if got := CurrentState(nil); got != domain.CheckStateStart {
		t.Fatalf("без сессий ожидали start, получили %s", got)
	}

	open := DailySessions([]domain.AttendanceEvent{event(domain.EventStart, base)})
	if got := CurrentState(open); got != domain.CheckStateEnd {
		t.Fatalf("с открытой сессией ожидали end, получили %s", got)
	}

	closed := DailySessions([]domain.AttendanceEvent{
		event(domain.EventStart, base),
		event(domain.EventEnd, base.Add(time.Hour)),
	})
	if got := CurrentState(closed); got != domain.CheckStateRestart {
		t.Fatalf("после закрытой сессии ожидали restart, получили %s", got)
	}
}

func TestPeriodStatsTwoWednesdaysCompleted(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 8, 6, 21, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 6, 21, 45, 0, 0, loc)),
		event(domain.EventStart, time.Date(2025, 8, 13, 21, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 13, 22, 0, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.WednesdayCount != 2 {
		t.Fatalf("ожидали 2 среды, получили %d", status.WednesdayCount)
	}
	if !status.IsCompleted {
		t.Fatalf("две среды должны закрывать требование")
	}
}

func TestPeriodStatsOneWednesdayNotCompleted(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 8, 6, 21, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 6, 21, 45, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.WednesdayCount != 1 || status.IsCompleted {
		t.Fatalf("одна среда не закрывает требование: count=%d completed=%v", status.WednesdayCount, status.IsCompleted)
	}
}

func TestPeriodStatsTargetDaysSubsetOfTotal(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		// Среда.
		event(domain.EventStart, time.Date(2025, 8, 6, 21, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 6, 22, 0, 0, 0, loc)),
		// Пятница.
		event(domain.EventStart, time.Date(2025, 8, 8, 10, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 8, 11, 0, 0, 0, loc)),
		// Суббота.
		event(domain.EventStart, time.Date(2025, 8, 9, 10, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 9, 10, 30, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.TotalDays < status.WednesdayCount {
		t.Fatalf("целевые дни — подмножество всех: total=%d target=%d", status.TotalDays, status.WednesdayCount)
	}
	if status.TotalDays != 3 || status.WednesdayCount != 1 {
		t.Fatalf("ожидали 3 дня и 1 среду, получили %d и %d", status.TotalDays, status.WednesdayCount)
	}
}

func TestPeriodStatsZeroDurationDayDoesNotCount(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	// Открытая сессия в среду: день виден в календаре, но не засчитан.
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 8, 6, 21, 0, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.WednesdayCount != 0 || status.TotalDays != 0 {
		t.Fatalf("открытая сессия не даёт длительности: target=%d total=%d", status.WednesdayCount, status.TotalDays)
	}
	if len(status.Days) != 1 || status.Days[0].SessionCount != 1 {
		t.Fatalf("день с открытой сессией должен попасть в календарь")
	}
}

func TestPeriodStatsIgnoresDaysOutsideWindow(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	// 3 сентября — среда вне окна августа.
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 9, 3, 21, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 9, 3, 22, 0, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.WednesdayCount != 0 || status.TotalDays != 0 {
		t.Fatalf("день вне окна периода не должен засчитываться")
	}
}

func TestPeriodStatsLateHourFlag(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 8, 6, 23, 10, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 6, 23, 50, 0, 0, loc)),
		event(domain.EventStart, time.Date(2025, 8, 7, 10, 0, 0, 0, loc)),
		event(domain.EventEnd, time.Date(2025, 8, 7, 11, 0, 0, 0, loc)),
	}}
	svc := NewService(repo, &stubPeriodRepo{period: p}, nil, loc, 0)

	status, err := svc.PeriodStats(context.Background(), uuid.New(), p)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(status.Days) != 2 {
		t.Fatalf("ожидали 2 дня, получили %d", len(status.Days))
	}
	if !status.Days[0].AttendedLate {
		t.Fatalf("сессия 23:10–23:50 должна поднимать флаг позднего часа")
	}
	if status.Days[1].AttendedLate {
		t.Fatalf("утренняя сессия не должна поднимать флаг позднего часа")
	}
}

func TestDailySummaryKeepsEndOnNextDaySeparate(t *testing.T) {
	loc := seoul(t)
	repo := &stubAttendanceRepo{events: []domain.AttendanceEvent{
		event(domain.EventStart, time.Date(2025, 8, 6, 23, 30, 0, 0, loc).UTC()),
		// end после полуночи попадает в следующий день и отбрасывается там как одиночный.
		event(domain.EventEnd, time.Date(2025, 8, 7, 0, 20, 0, 0, loc).UTC()),
	}}
	svc := NewService(repo, &stubPeriodRepo{}, nil, loc, 0)

	today, err := svc.DailySummaryFor(context.Background(), uuid.New(), time.Date(2025, 8, 6, 12, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if today.SessionCount != 1 || today.State != domain.CheckStateEnd {
		t.Fatalf("6 августа должна остаться открытая сессия: count=%d state=%s", today.SessionCount, today.State)
	}

	next, err := svc.DailySummaryFor(context.Background(), uuid.New(), time.Date(2025, 8, 7, 12, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if next.SessionCount != 0 || next.State != domain.CheckStateStart {
		t.Fatalf("одиночный end 7 августа должен отбрасываться: count=%d state=%s", next.SessionCount, next.State)
	}
}

func TestRecordEventUnauthenticated(t *testing.T) {
	svc := NewService(&stubAttendanceRepo{}, &stubPeriodRepo{}, nil, seoul(t), 0)
	_, err := svc.RecordEvent(context.Background(), uuid.Nil, uuid.New(), domain.EventStart, time.Now())
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("ожидали ErrUnauthenticated, получили %v", err)
	}
}

func TestRecordEventPeriodNotFound(t *testing.T) {
	svc := NewService(&stubAttendanceRepo{}, &stubPeriodRepo{err: domain.ErrPeriodNotFound}, nil, seoul(t), 0)
	_, err := svc.RecordEvent(context.Background(), uuid.New(), uuid.New(), domain.EventStart, time.Now())
	if !errors.Is(err, domain.ErrPeriodNotFound) {
		t.Fatalf("ожидали ErrPeriodNotFound, получили %v", err)
	}
}

func TestRecordEventInsertsAndPublishes(t *testing.T) {
	loc := seoul(t)
	p := augustPeriod()
	repo := &stubAttendanceRepo{}
	queue := &stubQueue{}
	svc := NewService(repo, &stubPeriodRepo{period: p}, queue, loc, 0)

	userID := uuid.New()
	now := time.Date(2025, 8, 6, 21, 0, 0, 0, loc)
	ev, err := svc.RecordEvent(context.Background(), userID, p.ID, domain.EventStart, now)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("ожидали одну вставку, получили %d", len(repo.inserted))
	}
	if !ev.Time.Equal(now.UTC()) {
		t.Fatalf("таймстемп должен храниться в UTC: %v", ev.Time)
	}
	if len(queue.published) != 1 || queue.published[0].Kind != domain.ActivityAttendance {
		t.Fatalf("ожидали публикацию события активности")
	}
}
