package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/session"
)

// handleLogin handles POST /login.
func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := mustSession(r)
	creds := model.Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	pg := p.newPage(r, sess, router.ViewLogin)
	pg.Data = loginForm{Email: creds.Email}

	if err := model.ValidateCredentials(&creds); err != nil {
		pg.Error = "Email and password are required"
		p.render(w, http.StatusBadRequest, router.ViewLogin, pg)
		return
	}

	id, err := p.api.Login(ctx, creds)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			pg.Error = "Invalid email or password"
			p.render(w, http.StatusUnauthorized, router.ViewLogin, pg)
			return
		}
		p.logger.Warn("login call failed", "err", err)
		pg.Error = "Sign-in is unavailable, please try again later"
		p.render(w, http.StatusBadGateway, router.ViewLogin, pg)
		return
	}

	if err := sess.Login(ctx, id); err != nil {
		p.logger.Warn("starting session failed", "user_id", id.ID, "err", err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, session.ErrInvalidIdentity) {
			status = http.StatusBadGateway
		}
		pg.Error = "Could not start your session, please try again"
		p.render(w, status, router.ViewLogin, pg)
		return
	}

	p.presence.Touch(id, r.URL.Path)
	p.emit(ctx, events.TopicSessionLogin, events.NewSessionLogin(id, p.now()))
	http.Redirect(w, r, router.Landing(id.Tier()), http.StatusFound)
}

// handleRegister handles POST /register.
func (p *Portal) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	reg := model.Registration{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Phone:    strings.TrimSpace(r.PostFormValue("phone")),
	}
	pg := p.newPage(r, sess, router.ViewRegister)
	pg.Data = registerForm{Name: reg.Name, Email: reg.Email, Phone: reg.Phone}

	if err := model.ValidateRegistration(&reg); err != nil {
		pg.Error = validationMessage(err)
		p.render(w, http.StatusBadRequest, router.ViewRegister, pg)
		return
	}

	if _, err := p.api.Signup(r.Context(), reg); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			pg.Error = apiErr.Message
			p.render(w, apiErr.StatusCode, router.ViewRegister, pg)
			return
		}
		p.logger.Warn("signup call failed", "err", err)
		pg.Error = "Registration is unavailable, please try again later"
		p.render(w, http.StatusBadGateway, router.ViewRegister, pg)
		return
	}
	redirectWith(w, r, router.PathLogin, "notice", "Registration successful. Please sign in.")
}

// handleLogout handles POST /logout. It always ends on the login page.
func (p *Portal) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	id, had := sess.Identity()
	if err := sess.Logout(r.Context()); err != nil {
		p.logger.Warn("clearing session failed", "user_id", id.ID, "err", err)
	}
	if had {
		p.presence.MarkIdle(id.ID)
		p.emit(r.Context(), events.TopicSessionLogout, events.NewSessionLogout(id.ID, p.now()))
	}
	http.Redirect(w, r, router.PathLogin, http.StatusFound)
}

// handleCreateBooking handles POST /client/bookings. The rental is always
// made for the session's own identity.
func (p *Portal) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := mustSession(r).Identity()

	carID, err := strconv.ParseInt(r.PostFormValue("carId"), 10, 64)
	if err != nil || carID <= 0 {
		redirectWith(w, r, router.PathClient, "error", "Choose a car to book")
		return
	}
	start, err := formDate(r, "startDate")
	if err != nil {
		redirectWith(w, r, router.PathClient, "error", "Invalid start date")
		return
	}
	end, err := formDate(r, "endDate")
	if err != nil {
		redirectWith(w, r, router.PathClient, "error", "Invalid end date")
		return
	}

	car, err := p.api.GetCar(ctx, carID)
	if err != nil {
		p.actionFailed(w, r, router.PathClient, "load the car", err)
		return
	}
	rental := model.Rental{UserID: id.ID, CarID: carID, StartDate: start, EndDate: end}
	if err := model.ValidateBooking(&rental, car); err != nil {
		redirectWith(w, r, router.PathClient, "error", validationMessage(err))
		return
	}

	created, err := p.api.CreateRental(ctx, client.CreateRentalRequest{
		UserID:    id.ID,
		CarID:     carID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		p.actionFailed(w, r, router.PathClient, "create the booking", err)
		return
	}
	total := created.TotalPrice
	if total == 0 {
		total = model.QuoteTotal(start, end, car.PricePerDay)
	}
	redirectWith(w, r, router.PathClientBookings, "notice",
		fmt.Sprintf("Booked %s for $%.2f", car.Title(), total))
}

// handleCreateCar handles POST /admin/cars.
func (p *Portal) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	car, ok := p.carForm(w, r)
	if !ok {
		return
	}
	created, err := p.api.CreateCar(r.Context(), car)
	if err != nil {
		p.actionFailed(w, r, router.PathAdminCars, "add the car", err)
		return
	}
	redirectWith(w, r, router.PathAdminCars, "notice", "Added "+created.Title())
}

// handleUpdateCar handles POST /admin/cars/{id}.
func (p *Portal) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, router.PathAdminCars)
	if !ok {
		return
	}
	car, ok := p.carForm(w, r)
	if !ok {
		return
	}
	updated, err := p.api.UpdateCar(r.Context(), id, car)
	if err != nil {
		p.actionFailed(w, r, router.PathAdminCars, "update the car", err)
		return
	}
	redirectWith(w, r, router.PathAdminCars, "notice", "Updated "+updated.Title())
}

// handleDeleteCar handles POST /admin/cars/{id}/delete.
func (p *Portal) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, router.PathAdminCars)
	if !ok {
		return
	}
	if err := p.api.DeleteCar(r.Context(), id); err != nil {
		p.actionFailed(w, r, router.PathAdminCars, "delete the car", err)
		return
	}
	redirectWith(w, r, router.PathAdminCars, "notice", "Car deleted")
}

// handleSetRentalStatus handles POST /admin/bookings/{id}/status.
func (p *Portal) handleSetRentalStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, router.PathAdminBookings)
	if !ok {
		return
	}
	status := model.RentalStatus(strings.ToUpper(strings.TrimSpace(r.PostFormValue("status"))))
	if err := model.ValidateStatusChange(status); err != nil {
		redirectWith(w, r, router.PathAdminBookings, "error", validationMessage(err))
		return
	}
	if _, err := p.api.UpdateRentalStatus(r.Context(), id, status); err != nil {
		p.actionFailed(w, r, router.PathAdminBookings, "update the booking", err)
		return
	}
	redirectWith(w, r, router.PathAdminBookings, "notice", fmt.Sprintf("Booking #%d marked %s", id, status))
}

// handleDeleteUser handles POST /admin/users/{id}/delete.
func (p *Portal) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, router.PathAdminUsers)
	if !ok {
		return
	}
	if self, _ := mustSession(r).Identity(); self.ID == id {
		redirectWith(w, r, router.PathAdminUsers, "error", "You cannot delete your own account")
		return
	}
	if err := p.api.DeleteUser(r.Context(), id); err != nil {
		p.actionFailed(w, r, router.PathAdminUsers, "delete the user", err)
		return
	}
	redirectWith(w, r, router.PathAdminUsers, "notice", "User deleted")
}

// carForm reads and validates the car fields of an admin form. On failure it
// has already redirected back with an error.
func (p *Portal) carForm(w http.ResponseWriter, r *http.Request) (model.Car, bool) {
	car := model.Car{
		Brand:     strings.TrimSpace(r.PostFormValue("brand")),
		Model:     strings.TrimSpace(r.PostFormValue("model")),
		Available: r.PostFormValue("available") != "",
	}
	var err error
	if car.Year, err = strconv.Atoi(strings.TrimSpace(r.PostFormValue("year"))); err != nil {
		redirectWith(w, r, router.PathAdminCars, "error", "year must be a number")
		return car, false
	}
	if car.PricePerDay, err = strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("pricePerDay")), 64); err != nil {
		redirectWith(w, r, router.PathAdminCars, "error", "pricePerDay must be a number")
		return car, false
	}
	if err := model.ValidateCar(&car); err != nil {
		redirectWith(w, r, router.PathAdminCars, "error", validationMessage(err))
		return car, false
	}
	return car, true
}

// actionFailed logs a failed API call and sends the browser back with the
// reason.
func (p *Portal) actionFailed(w http.ResponseWriter, r *http.Request, back, action string, err error) {
	p.logger.Warn("portal action failed", "action", action, "path", r.URL.Path, "err", err)
	redirectWith(w, r, back, "error", "Could not "+action+": "+apiMessage(err))
}

func pathID(w http.ResponseWriter, r *http.Request, back string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		redirectWith(w, r, back, "error", "Invalid id")
		return 0, false
	}
	return id, true
}

// formDate parses a YYYY-MM-DD form field. An empty field is the zero Date.
func formDate(r *http.Request, field string) (model.Date, error) {
	v := strings.TrimSpace(r.PostFormValue(field))
	if v == "" {
		return model.Date{}, nil
	}
	return model.ParseDate(v)
}
