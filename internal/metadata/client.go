// Package metadata talks to The Movie Database and maps its responses onto
// the catalog's field names.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/JustinTDCT/Videotheque/internal/apperr"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/models"
)

const maxBodyBytes = 4 << 20

type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
	// RequestsPerSecond caps outbound calls; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
	now        func() time.Time
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.code)
}

// callerGone marks a request abandoned by its own caller. It says nothing
// about provider health.
type callerGone struct {
	err error
}

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

// redact strips the query string, which carries the API key, from transport
// errors.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return &url.Error{Op: ue.Op, URL: "<redacted>", Err: ue.Err}
	}
	u.RawQuery = ""
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Language == "" {
		cfg.Language = "fr-FR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 404 is an answer about the movie, not about provider health.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code == http.StatusNotFound)
		},
		IsExcluded: func(err error) bool {
			var cg *callerGone
			return errors.As(err, &cg)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		cb:         cb,
		now:        time.Now,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, apperr.New(apperr.UpstreamFailure, "metadata", "TMDB API key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "metadata", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, redact(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &callerGone{err: ctxErr}
			}
			return nil, redact(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, &statusError{code: resp.StatusCode}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	})
	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se) && se.code == http.StatusNotFound:
			return nil, apperr.New(apperr.NotFound, "metadata", "no result found")
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, apperr.New(apperr.UpstreamFailure, "metadata", "movie provider temporarily unavailable")
		case errors.As(err, new(*callerGone)):
			return nil, apperr.Wrap(apperr.UpstreamFailure, "metadata", errors.Unwrap(err))
		}
		logging.Warn().Err(err).Str("endpoint", endpoint).Msg("metadata request failed")
		return nil, apperr.New(apperr.UpstreamFailure, "metadata", "movie provider request failed")
	}
	return body, nil
}

func (c *Client) list(ctx context.Context, endpoint string, params url.Values) ([]models.NormalizedMovie, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return NormalizeList(body)
}

func (c *Client) SearchByName(ctx context.Context, query string) ([]models.NormalizedMovie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.BadInput, "metadata.search", "query is required")
	}
	return c.list(ctx, "/search/movie", url.Values{"query": {query}})
}

// DiscoverByGenres resolves genre names against the genre table and returns
// movies tagged with all of them.
func (c *Client) DiscoverByGenres(ctx context.Context, names []string) ([]models.NormalizedMovie, error) {
	ids := ResolveGenreIDs(names)
	if len(ids) == 0 {
		return nil, apperr.New(apperr.BadInput, "metadata.discover", "invalid genre category")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return c.list(ctx, "/discover/movie", url.Values{"with_genres": {strings.Join(parts, ",")}})
}

func (c *Client) DiscoverByYear(ctx context.Context, year int) ([]models.NormalizedMovie, error) {
	if year <= 0 {
		return nil, apperr.New(apperr.BadInput, "metadata.discover", "year must be a positive number")
	}
	return c.list(ctx, "/discover/movie", url.Values{"primary_release_year": {strconv.Itoa(year)}})
}

func (c *Client) Details(ctx context.Context, id int) (*models.NormalizedMovie, error) {
	if id <= 0 {
		return nil, apperr.New(apperr.BadInput, "metadata.details", "movie id must be a positive number")
	}
	body, err := c.get(ctx, "/movie/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeOne(body)
}

func (c *Client) Horror(ctx context.Context) ([]models.NormalizedMovie, error) {
	return c.list(ctx, "/discover/movie", url.Values{"with_genres": {strconv.Itoa(horrorGenreID)}})
}

func (c *Client) Popular(ctx context.Context) ([]models.NormalizedMovie, error) {
	return c.list(ctx, "/discover/movie", url.Values{"sort_by": {"popularity.desc"}})
}

// NowPlaying lists movies in theaters released during the current year,
// newest first.
func (c *Client) NowPlaying(ctx context.Context) ([]models.NormalizedMovie, error) {
	year := c.now().Year()
	return c.list(ctx, "/movie/now_playing", url.Values{
		"release_date.gte": {fmt.Sprintf("%d-01-01", year)},
		"release_date.lte": {fmt.Sprintf("%d-12-31", year)},
		"sort_by":          {"release_date.desc"},
	})
}
