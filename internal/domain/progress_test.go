package domain

import "testing"

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := CompletionRate(c.completed, c.total); got != c.want {
			t.Errorf("CompletionRate(%d,%d) = %d, ожидали %d", c.completed, c.total, got, c.want)
		}
	}
}

func TestClassifyProgress(t *testing.T) {
	cases := []struct {
		rate int
		want ProgressStatus
	}{
		{100, ProgressCompleted},
		{99, ProgressGood},
		{66, ProgressGood},
		{65, ProgressFair},
		{33, ProgressFair},
		{32, ProgressPoor},
		{0, ProgressPoor},
	}
	for _, c := range cases {
		if got := ClassifyProgress(c.rate); got != c.want {
			t.Errorf("ClassifyProgress(%d) = %s, ожидали %s", c.rate, got, c.want)
		}
	}
}

func TestTeamGrade(t *testing.T) {
	cases := []struct {
		rate int
		want string
	}{
		{95, "A+"},
		{90, "A+"},
		{85, "A"},
		{70, "B+"},
		{60, "B"},
		{55, "C+"},
		{40, "C"},
		{39, "D"},
		{0, "D"},
	}
	for _, c := range cases {
		if got := TeamGrade(c.rate); got != c.want {
			t.Errorf("TeamGrade(%d) = %s, ожидали %s", c.rate, got, c.want)
		}
	}
}

func TestDurationBucket(t *testing.T) {
	cases := []struct {
		minutes int
		want    DurationBucket
	}{
		{180, BucketHigh},
		{120, BucketHigh},
		{119, BucketMedium},
		{60, BucketMedium},
		{59, BucketLow},
		{30, BucketLow},
		{29, BucketMinimal},
		{0, BucketMinimal},
	}
	for _, c := range cases {
		if got := (DailyStat{TotalMinutes: c.minutes}).Bucket(); got != c.want {
			t.Errorf("Bucket(%d мин) = %s, ожидали %s", c.minutes, got, c.want)
		}
	}
}

func TestAvatarInitial(t *testing.T) {
	if got := (User{Name: "김밥"}).AvatarInitial(); got != "김" {
		t.Errorf("ожидали первую руну имени, получили %q", got)
	}
	if got := (User{}).AvatarInitial(); got != "?" {
		t.Errorf("для пустого имени ожидали ?, получили %q", got)
	}
}
