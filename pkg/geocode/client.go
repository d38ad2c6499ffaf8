package geocode

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fibertrack/fibertrack/pkg/config"
	"github.com/fibertrack/fibertrack/pkg/geo"
)

var (
	ErrInvalidCEP  = errors.New("cep must contain 8 digits")
	ErrCEPNotFound = errors.New("cep not found")
	ErrNoResult    = errors.New("no geocoding result")

	nonDigits = regexp.MustCompile(`\D`)
)

// Address is a postal-code lookup result from ViaCEP.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	Error        bool   `json:"erro"`
}

// Client resolves Brazilian postal codes via ViaCEP and forward-geocodes
// street addresses via Nominatim. Nominatim's usage policy caps anonymous
// clients at one request per second, so calls are throttled.
type Client struct {
	http      *resty.Client
	viaCEP    string
	nominatim string

	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func NewClient(cfg *config.GeocodeConfig) *Client {
	http := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		http:      http,
		viaCEP:    cfg.ViaCEPBaseURL,
		nominatim: cfg.NominatimBaseURL,
		interval:  cfg.MinInterval,
	}
}

// LookupCEP fetches the address registered for a postal code.
func (c *Client) LookupCEP(ctx context.Context, cep string) (*Address, error) {
	clean := nonDigits.ReplaceAllString(cep, "")
	if len(clean) != 8 {
		return nil, ErrInvalidCEP
	}

	var address Address
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&address).
		Get(fmt.Sprintf("%s/ws/%s/json/", c.viaCEP, clean))
	if err != nil {
		return nil, fmt.Errorf("viacep request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("viacep returned status %d", resp.StatusCode())
	}
	if address.Error {
		return nil, ErrCEPNotFound
	}

	return &address, nil
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a free-form address query to a coordinate.
func (c *Client) Geocode(ctx context.Context, query string) (*geo.Coordinate, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var results []nominatimResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get(c.nominatim + "/search")
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode())
	}
	if len(results) == 0 {
		return nil, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim longitude %q: %w", results[0].Lon, err)
	}

	coord := geo.Coordinate{Latitude: lat, Longitude: lng}
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	return &coord, nil
}

func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.interval - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
