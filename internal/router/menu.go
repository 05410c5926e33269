package router

import "github.com/alfredjeanlab/drivehub/internal/model"

// MenuItem is one navigation link.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Menu returns the navigation entries shown to tier.
func Menu(tier model.Tier) []MenuItem {
	switch tier {
	case model.TierAdmin:
		return []MenuItem{
			{Label: "Dashboard", Path: PathAdmin},
			{Label: "Manage Cars", Path: PathAdminCars},
			{Label: "Manage Bookings", Path: PathAdminBookings},
			{Label: "Manage Users", Path: PathAdminUsers},
		}
	case model.TierClient:
		return []MenuItem{
			{Label: "Browse Cars", Path: PathClient},
			{Label: "My Bookings", Path: PathClientBookings},
		}
	}
	return []MenuItem{
		{Label: "Login", Path: PathLogin},
		{Label: "Register", Path: PathRegister},
	}
}
