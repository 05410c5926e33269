package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/presence"
	"github.com/alfredjeanlab/drivehub/internal/router"
)

// viewHandler renders one view for an exchange the guard has already allowed.
type viewHandler func(w http.ResponseWriter, r *http.Request, pg *page)

func (p *Portal) viewHandlers() map[router.View]viewHandler {
	return map[router.View]viewHandler{
		router.ViewLogin:          p.viewLogin,
		router.ViewRegister:       p.viewRegister,
		router.ViewBrowseCars:     p.viewBrowseCars,
		router.ViewMyBookings:     p.viewMyBookings,
		router.ViewAdminDashboard: p.viewAdminDashboard,
		router.ViewManageCars:     p.viewManageCars,
		router.ViewManageBookings: p.viewManageBookings,
		router.ViewManageUsers:    p.viewManageUsers,
	}
}

type loginForm struct {
	Email string
}

type registerForm struct {
	Name  string
	Email string
	Phone string
}

type browseData struct {
	Cars   []model.Car
	Search string
	Sort   model.CarSort
	Sorts  []model.CarSort
	Today  string
}

type bookingsData struct {
	Rentals []model.Rental
}

type dashboardData struct {
	Stats  *model.Stats
	Active int
	Roster []presence.Entry
}

type manageCarsData struct {
	Cars   []model.Car
	Edit   *model.Car
	Adding bool
}

type manageBookingsData struct {
	Rentals  []model.Rental
	Statuses []model.RentalStatus
}

type manageUsersData struct {
	Users []model.User
	Self  int64
}

func (p *Portal) viewLogin(w http.ResponseWriter, _ *http.Request, pg *page) {
	pg.Data = loginForm{}
	p.render(w, http.StatusOK, router.ViewLogin, pg)
}

func (p *Portal) viewRegister(w http.ResponseWriter, _ *http.Request, pg *page) {
	pg.Data = registerForm{}
	p.render(w, http.StatusOK, router.ViewRegister, pg)
}

func (p *Portal) viewBrowseCars(w http.ResponseWriter, r *http.Request, pg *page) {
	q := r.URL.Query()
	data := browseData{
		Search: q.Get("search"),
		Sort:   model.CarSort(q.Get("sort")),
		Sorts:  model.CarSorts(),
		Today:  p.now().Format(model.DateLayout),
	}
	pg.Data = &data

	cars, err := p.api.ListCars(r.Context())
	if err != nil {
		p.loadFailed(w, router.ViewBrowseCars, pg, "cars", err)
		return
	}
	data.Cars = model.FilterCars(cars, data.Search, data.Sort)
	p.render(w, http.StatusOK, router.ViewBrowseCars, pg)
}

func (p *Portal) viewMyBookings(w http.ResponseWriter, r *http.Request, pg *page) {
	data := bookingsData{}
	pg.Data = &data

	rentals, err := p.api.ListUserRentals(r.Context(), pg.Identity.ID)
	if err != nil {
		p.loadFailed(w, router.ViewMyBookings, pg, "your bookings", err)
		return
	}
	data.Rentals = rentals
	p.render(w, http.StatusOK, router.ViewMyBookings, pg)
}

func (p *Portal) viewAdminDashboard(w http.ResponseWriter, r *http.Request, pg *page) {
	data := dashboardData{
		Active: p.presence.ActiveCount(),
		Roster: p.presence.Roster(0),
	}
	pg.Data = &data

	stats, err := p.api.Statistics(r.Context())
	if err != nil {
		p.loadFailed(w, router.ViewAdminDashboard, pg, "statistics", err)
		return
	}
	data.Stats = stats
	p.render(w, http.StatusOK, router.ViewAdminDashboard, pg)
}

// viewManageCars also serves the legacy /cars and /cars/add paths. ?edit=<id>
// opens the edit form for one car.
func (p *Portal) viewManageCars(w http.ResponseWriter, r *http.Request, pg *page) {
	data := manageCarsData{Adding: r.URL.Path == router.PathLegacyAddCar}
	pg.Data = &data

	cars, err := p.api.ListCars(r.Context())
	if err != nil {
		p.loadFailed(w, router.ViewManageCars, pg, "cars", err)
		return
	}
	data.Cars = cars

	if v := r.URL.Query().Get("edit"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			pg.Error = "Invalid car id"
		} else if car, err := p.api.GetCar(r.Context(), id); err != nil {
			pg.Error = "Could not load car: " + apiMessage(err)
		} else {
			data.Edit = car
		}
	}
	p.render(w, http.StatusOK, router.ViewManageCars, pg)
}

func (p *Portal) viewManageBookings(w http.ResponseWriter, r *http.Request, pg *page) {
	data := manageBookingsData{Statuses: model.RentalStatuses()}
	pg.Data = &data

	rentals, err := p.api.ListRentals(r.Context())
	if err != nil {
		p.loadFailed(w, router.ViewManageBookings, pg, "bookings", err)
		return
	}
	data.Rentals = rentals
	p.render(w, http.StatusOK, router.ViewManageBookings, pg)
}

func (p *Portal) viewManageUsers(w http.ResponseWriter, r *http.Request, pg *page) {
	data := manageUsersData{Self: pg.Identity.ID}
	pg.Data = &data

	users, err := p.api.ListUsers(r.Context())
	if err != nil {
		p.loadFailed(w, router.ViewManageUsers, pg, "users", err)
		return
	}
	data.Users = users
	p.render(w, http.StatusOK, router.ViewManageUsers, pg)
}

// loadFailed renders view with an error toast when its data could not be
// fetched.
func (p *Portal) loadFailed(w http.ResponseWriter, view router.View, pg *page, what string, err error) {
	p.logger.Warn("loading view data failed", "view", view, "err", err)
	pg.Error = "Could not load " + what + ": " + apiMessage(err)
	p.render(w, http.StatusBadGateway, view, pg)
}
