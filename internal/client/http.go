package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// DefaultBaseURL is where the rental API listens in a local deployment.
const DefaultBaseURL = "http://localhost:8080/api"

// HTTPClient implements API over the rental service's JSON REST endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for the API rooted at baseURL
// (e.g. "http://localhost:8080/api").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Authentication ---

func (c *HTTPClient) Login(ctx context.Context, creds model.Credentials) (model.Identity, error) {
	var id model.Identity
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &id); err != nil {
		return model.Identity{}, err
	}
	if !id.WellFormed() {
		return model.Identity{}, fmt.Errorf("login response: %w", model.ErrMalformedIdentity)
	}
	return id, nil
}

func (c *HTTPClient) Signup(ctx context.Context, reg model.Registration) (model.Identity, error) {
	var id model.Identity
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", reg, &id); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// --- Cars ---

func (c *HTTPClient) ListCars(ctx context.Context) ([]model.Car, error) {
	var cars []model.Car
	if err := c.doJSON(ctx, http.MethodGet, "/cars", nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *HTTPClient) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	var car model.Car
	if err := c.doJSON(ctx, http.MethodGet, "/cars/"+idPath(id), nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

func (c *HTTPClient) CreateCar(ctx context.Context, car model.Car) (*model.Car, error) {
	car.ID = 0
	var created model.Car
	if err := c.doJSON(ctx, http.MethodPost, "/cars", car, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPClient) UpdateCar(ctx context.Context, id int64, car model.Car) (*model.Car, error) {
	var updated model.Car
	if err := c.doJSON(ctx, http.MethodPut, "/cars/"+idPath(id), car, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *HTTPClient) DeleteCar(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/cars/"+idPath(id), nil, nil)
}

// --- Rentals ---

func (c *HTTPClient) ListRentals(ctx context.Context) ([]model.Rental, error) {
	var rentals []model.Rental
	if err := c.doJSON(ctx, http.MethodGet, "/rentals", nil, &rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}

func (c *HTTPClient) ListUserRentals(ctx context.Context, userID int64) ([]model.Rental, error) {
	var rentals []model.Rental
	if err := c.doJSON(ctx, http.MethodGet, "/rentals/user/"+idPath(userID), nil, &rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}

func (c *HTTPClient) CreateRental(ctx context.Context, req CreateRentalRequest) (*model.Rental, error) {
	var rental model.Rental
	if err := c.doJSON(ctx, http.MethodPost, "/rentals", req, &rental); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (c *HTTPClient) UpdateRentalStatus(ctx context.Context, id int64, status model.RentalStatus) (*model.Rental, error) {
	q := url.Values{}
	q.Set("status", string(status))
	var rental model.Rental
	if err := c.doJSON(ctx, http.MethodPatch, "/rentals/"+idPath(id)+"/status?"+q.Encode(), nil, &rental); err != nil {
		return nil, err
	}
	return &rental, nil
}

// --- Users ---

func (c *HTTPClient) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+idPath(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) DeleteUser(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+idPath(id), nil, nil)
}

// --- Statistics ---

func (c *HTTPClient) Statistics(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- internals ---

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}

// APIError represents an error response from the rental API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the API refused the caller's credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// doJSON performs an HTTP request with an optional JSON body and decodes the
// JSON response into result (if non-nil).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody, resp.Status)}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts a human message from an error body. The rental API
// uses "message"; proxies and older builds use "error".
func errorMessage(body []byte, status string) string {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}
