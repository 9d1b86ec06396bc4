package planner

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestWeekStartOf(t *testing.T) {
	start := civil.Date{Year: 2023, Month: time.December, Day: 20}
	// Walk across a year boundary and a leap day.
	for i := 0; i < 800; i++ {
		d := start.AddDays(i)
		ws := WeekStartOf(d)
		if wd := ws.In(time.UTC).Weekday(); wd != time.Monday {
			t.Fatalf("WeekStartOf(%s) = %s, a %s", d, ws, wd)
		}
		if days := d.DaysSince(ws); days < 0 || days > 6 {
			t.Fatalf("WeekStartOf(%s) = %s, %d days away", d, ws, days)
		}
	}

	t.Run("SundayBelongsToPrecedingMonday", func(t *testing.T) {
		sunday := civil.Date{Year: 2024, Month: time.March, Day: 10}
		want := civil.Date{Year: 2024, Month: time.March, Day: 4}
		if got := WeekStartOf(sunday); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	})

	t.Run("MondayIsItsOwnWeekStart", func(t *testing.T) {
		monday := civil.Date{Year: 2024, Month: time.March, Day: 4}
		if got := WeekStartOf(monday); got != monday {
			t.Errorf("Expected %s, got %s", monday, got)
		}
	})
}

func TestDatesOfWeek(t *testing.T) {
	monday := civil.Date{Year: 2024, Month: time.February, Day: 26}
	dates := DatesOfWeek(monday)

	if dates[0] != monday {
		t.Errorf("Expected first date %s, got %s", monday, dates[0])
	}
	// 2024 is a leap year, so Thursday is the 29th.
	if want := (civil.Date{Year: 2024, Month: time.February, Day: 29}); dates[3] != want {
		t.Errorf("Expected Thursday %s, got %s", want, dates[3])
	}
	if want := (civil.Date{Year: 2024, Month: time.March, Day: 3}); dates[6] != want {
		t.Errorf("Expected Sunday %s, got %s", want, dates[6])
	}
	for i := 1; i < len(dates); i++ {
		if dates[i].DaysSince(dates[i-1]) != 1 {
			t.Errorf("Expected consecutive dates, got %s then %s", dates[i-1], dates[i])
		}
	}
}

func TestCurrentWeekStart(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, time.October, 18, 23, 0, 0, 0, time.UTC) }
	want := civil.Date{Year: 2026, Month: time.October, Day: 12}
	if got := CurrentWeekStart(clock); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if got := GetNextMonday(civil.DateOf(clock())); got != want.AddDays(7) {
		t.Errorf("Expected next Monday %s, got %s", want.AddDays(7), got)
	}
}

func TestParseSlot(t *testing.T) {
	for _, s := range []string{"breakfast", "lunch", "dinner", "snack"} {
		if _, err := ParseSlot(s); err != nil {
			t.Errorf("Expected %q to parse, got %v", s, err)
		}
	}
	if _, err := ParseSlot("brunch"); err == nil {
		t.Error("Expected an error for unknown slot")
	}
}
