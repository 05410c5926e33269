package model

// User is an account as listed by the admin user endpoints.
type User struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone string  `json:"phone,omitempty"`
	Roles RoleSet `json:"roles"`
}

// Registration is the sign-up form payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalCars     int64 `json:"totalCars"`
	TotalRentals  int64 `json:"totalRentals"`
	AvailableCars int64 `json:"availableCars"`
	RentedCars    int64 `json:"rentedCars"`
}
