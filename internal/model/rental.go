package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RentalStatus is the lifecycle state of a booking.
type RentalStatus string

const (
	RentalBooked    RentalStatus = "BOOKED"
	RentalCompleted RentalStatus = "COMPLETED"
	RentalCancelled RentalStatus = "CANCELLED"
)

func (s RentalStatus) String() string { return string(s) }

func (s RentalStatus) IsValid() bool {
	switch s {
	case RentalBooked, RentalCompleted, RentalCancelled:
		return true
	}
	return false
}

// RentalStatuses lists the statuses an admin can pick from.
func RentalStatuses() []RentalStatus {
	return []RentalStatus{RentalBooked, RentalCompleted, RentalCancelled}
}

// DateLayout is the wire format for rental dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Rental is a booking of one car by one user.
type Rental struct {
	ID            int64        `json:"id,omitempty"`
	UserID        int64        `json:"userId"`
	UserName      string       `json:"userName,omitempty"`
	CarID         int64        `json:"carId"`
	CarBrandModel string       `json:"carBrandModel,omitempty"`
	StartDate     Date         `json:"startDate"`
	EndDate       Date         `json:"endDate"`
	TotalPrice    float64      `json:"totalPrice,omitempty"`
	Status        RentalStatus `json:"status,omitempty"`
}

// RentalDays is the number of whole days billed for a booking. Same-day and
// inverted ranges bill one day.
func RentalDays(start, end Date) int {
	days := int(math.Floor(end.Sub(start.Time).Hours() / 24))
	if days <= 0 {
		return 1
	}
	return days
}

// QuoteTotal is the price charged for renting at pricePerDay between start
// and end.
func QuoteTotal(start, end Date, pricePerDay float64) float64 {
	return float64(RentalDays(start, end)) * pricePerDay
}
