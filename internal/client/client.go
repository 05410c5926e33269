// Package client talks to the car-rental REST API that backs the portal:
// authentication, the car fleet, rentals, users and statistics.
package client

import (
	"context"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// API is the set of back-end calls the portal and the CLI make. It is
// implemented by HTTPClient.
type API interface {
	// Authentication
	Login(ctx context.Context, creds model.Credentials) (model.Identity, error)
	Signup(ctx context.Context, reg model.Registration) (model.Identity, error)

	// Cars
	ListCars(ctx context.Context) ([]model.Car, error)
	GetCar(ctx context.Context, id int64) (*model.Car, error)
	CreateCar(ctx context.Context, car model.Car) (*model.Car, error)
	UpdateCar(ctx context.Context, id int64, car model.Car) (*model.Car, error)
	DeleteCar(ctx context.Context, id int64) error

	// Rentals
	ListRentals(ctx context.Context) ([]model.Rental, error)
	ListUserRentals(ctx context.Context, userID int64) ([]model.Rental, error)
	CreateRental(ctx context.Context, req CreateRentalRequest) (*model.Rental, error)
	UpdateRentalStatus(ctx context.Context, id int64, status model.RentalStatus) (*model.Rental, error)

	// Users
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// Statistics
	Statistics(ctx context.Context) (*model.Stats, error)
}

// CreateRentalRequest is the booking payload accepted by POST /rentals.
type CreateRentalRequest struct {
	UserID    int64      `json:"userId"`
	CarID     int64      `json:"carId"`
	StartDate model.Date `json:"startDate"`
	EndDate   model.Date `json:"endDate"`
}
