package domain

import "math"

// ProgressStatus — качественный уровень выполнения месячных задач.
type ProgressStatus string

const (
	ProgressCompleted ProgressStatus = "completed"
	ProgressGood      ProgressStatus = "good"
	ProgressFair      ProgressStatus = "fair"
	ProgressPoor      ProgressStatus = "poor"
)

// TasksPerPeriod — количество отслеживаемых задач в месяц: пост, посещаемость, комментарии.
const TasksPerPeriod = 3

// CompletionRate возвращает процент выполнения, округлённый до целого.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ClassifyProgress переводит процент выполнения в качественный уровень.
func ClassifyProgress(rate int) ProgressStatus {
	switch {
	case rate >= 100:
		return ProgressCompleted
	case rate >= 66:
		return ProgressGood
	case rate >= 33:
		return ProgressFair
	default:
		return ProgressPoor
	}
}

var teamGrades = []struct {
	min   int
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
}

// TeamGrade возвращает оценку команды по среднему проценту выполнения.
func TeamGrade(avgRate int) string {
	for _, g := range teamGrades {
		if avgRate >= g.min {
			return g.grade
		}
	}
	return "D"
}
