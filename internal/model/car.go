package model

import (
	"cmp"
	"slices"
	"strings"
)

// Car is a rentable vehicle.
type Car struct {
	ID          int64   `json:"id,omitempty"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	PricePerDay float64 `json:"pricePerDay"`
	Available   bool    `json:"available"`
}

// Title is "Brand Model".
func (c Car) Title() string {
	return strings.TrimSpace(c.Brand + " " + c.Model)
}

// CarSort selects the ordering used when browsing cars.
type CarSort string

const (
	SortNone      CarSort = ""
	SortPriceAsc  CarSort = "price_asc"
	SortPriceDesc CarSort = "price_desc"
	SortYearDesc  CarSort = "year_desc"
)

func (s CarSort) IsValid() bool {
	switch s {
	case SortNone, SortPriceAsc, SortPriceDesc, SortYearDesc:
		return true
	}
	return false
}

// CarSorts lists the selectable sort orders.
func CarSorts() []CarSort {
	return []CarSort{SortPriceAsc, SortPriceDesc, SortYearDesc}
}

// FilterCars returns the cars whose brand or model contains search
// (case-insensitive), ordered by sort. Unknown sort values keep input order.
// The input slice is not modified.
func FilterCars(cars []Car, search string, sort CarSort) []Car {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Car, 0, len(cars))
	for _, c := range cars {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Brand), needle) ||
			strings.Contains(strings.ToLower(c.Model), needle) {
			out = append(out, c)
		}
	}

	switch sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Car) int { return cmp.Compare(a.PricePerDay, b.PricePerDay) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Car) int { return cmp.Compare(b.PricePerDay, a.PricePerDay) })
	case SortYearDesc:
		slices.SortStableFunc(out, func(a, b Car) int { return cmp.Compare(b.Year, a.Year) })
	}
	return out
}
