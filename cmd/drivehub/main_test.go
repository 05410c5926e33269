package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/spf13/cobra"
)

// rentalAPI is a canned rental service: one client account and a small fleet.
type rentalAPI struct {
	booked []client.CreateRentalRequest
}

var testCars = []model.Car{
	{ID: 10, Brand: "Toyota", Model: "Corolla", Year: 2021, PricePerDay: 40, Available: true},
	{ID: 11, Brand: "BMW", Model: "X5", Year: 2023, PricePerDay: 120, Available: true},
	{ID: 12, Brand: "Fiat", Model: "Panda", Year: 2019, PricePerDay: 25},
}

func (a *rentalAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		switch {
		case creds.Email == "cal@example.com" && creds.Password == "secret1":
			writeTestJSON(w, http.StatusOK, map[string]any{
				"id": 2, "name": "Cal Client", "email": creds.Email, "roles": []string{"ROLE_CLIENT"},
			})
		case creds.Email == "ada@example.com" && creds.Password == "secret1":
			writeTestJSON(w, http.StatusOK, map[string]any{
				"id": 1, "name": "Ada Admin", "email": creds.Email, "roles": []string{"ROLE_ADMIN", "ROLE_CLIENT"},
			})
		default:
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		}
	})
	mux.HandleFunc("GET /api/cars", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, testCars)
	})
	mux.HandleFunc("GET /api/cars/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range testCars {
			if r.PathValue("id") == strconv.FormatInt(c.ID, 10) {
				writeTestJSON(w, http.StatusOK, c)
				return
			}
		}
		writeTestJSON(w, http.StatusNotFound, map[string]string{"message": "Car not found"})
	})
	mux.HandleFunc("POST /api/rentals", func(w http.ResponseWriter, r *http.Request) {
		var req client.CreateRentalRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		a.booked = append(a.booked, req)
		writeTestJSON(w, http.StatusOK, model.Rental{
			ID: 100, UserID: req.UserID, CarID: req.CarID,
			StartDate: req.StartDate, EndDate: req.EndDate, Status: model.RentalBooked,
		})
	})
	return mux
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cliEnv struct {
	api         *rentalAPI
	apiURL      string
	sessionPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	a := &rentalAPI{}
	srv := httptest.NewServer(a.handler())
	t.Cleanup(srv.Close)
	return &cliEnv{
		api:         a,
		apiURL:      srv.URL + "/api",
		sessionPath: filepath.Join(t.TempDir(), "user.json"),
	}
}

// run executes the CLI with args and returns what it printed on stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--api-url", e.apiURL, "--session-file", e.sessionPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores flag values left over from a previous run.
func resetFlags() {
	jsonOutput = false
	verbose = false
	for cmd, flags := range map[*cobra.Command]map[string]string{
		loginCmd: {"email": "", "password": ""},
		carsCmd:  {"search": "", "sort": "", "available": "false"},
		bookCmd:  {"car": "0", "start": "", "end": ""},
		navCmd:   {"trace": "false", "timeout": "5s"},
	} {
		for name, v := range flags {
			_ = cmd.Flags().Set(name, v)
		}
	}
}

func (e *cliEnv) login(t *testing.T, email string) {
	t.Helper()
	if _, err := e.run(t, "login", "--email", email, "--password", "secret1"); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
}
