package model

import (
	"encoding/json"
	"testing"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestRentalDays(t *testing.T) {
	for _, tc := range []struct {
		start, end string
		want       int
	}{
		{"2024-03-01", "2024-03-04", 3},
		{"2024-03-01", "2024-03-01", 1},
		{"2024-03-05", "2024-03-01", 1},
		{"2024-02-28", "2024-03-01", 2},
	} {
		got := RentalDays(mustDate(t, tc.start), mustDate(t, tc.end))
		if got != tc.want {
			t.Errorf("RentalDays(%s, %s) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestQuoteTotal(t *testing.T) {
	got := QuoteTotal(mustDate(t, "2024-06-10"), mustDate(t, "2024-06-15"), 49.5)
	if got != 247.5 {
		t.Errorf("QuoteTotal = %v, want 247.5", got)
	}
	if got := QuoteTotal(mustDate(t, "2024-06-10"), mustDate(t, "2024-06-10"), 80); got != 80 {
		t.Errorf("same-day QuoteTotal = %v, want 80", got)
	}
}

func TestRentalStatus(t *testing.T) {
	for _, s := range RentalStatuses() {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if RentalStatus("booked").IsValid() {
		t.Error("statuses are upper-case")
	}
}

func TestRental_JSON(t *testing.T) {
	var r Rental
	raw := `{"id":4,"userId":2,"userName":"Bo","carId":9,"carBrandModel":"BMW X5",
		"startDate":"2024-05-01","endDate":"2024-05-03","totalPrice":240,"status":"BOOKED"}`
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.StartDate.String() != "2024-05-01" || r.EndDate.String() != "2024-05-03" {
		t.Errorf("dates = %s..%s", r.StartDate, r.EndDate)
	}
	if r.Status != RentalBooked || r.CarBrandModel != "BMW X5" {
		t.Errorf("unexpected rental: %+v", r)
	}

	out, err := json.Marshal(Rental{UserID: 2, CarID: 9, StartDate: mustDate(t, "2024-05-01"), EndDate: mustDate(t, "2024-05-03")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"userId":2,"carId":9,"startDate":"2024-05-01","endDate":"2024-05-03"}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, err := ParseDate("05/01/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}
