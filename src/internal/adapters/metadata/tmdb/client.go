package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/movieboxd/movieboxd/src/internal/domain"
	"github.com/movieboxd/movieboxd/src/internal/logging"
	"github.com/movieboxd/movieboxd/src/internal/metrics"
	"github.com/movieboxd/movieboxd/src/internal/ports"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL  = "https://image.tmdb.org/t/p/w500"
	language       = "en-US"
)

var (
	ErrEmptyQuery        = errors.New("tmdb: search query is empty")
	ErrMalformedResponse = errors.New("tmdb: response has no results array")
)

type Options struct {
	BaseURL string
	// ReadAccessToken is sent as a bearer token. APIKey is used only when it is empty.
	ReadAccessToken string
	APIKey          string
	Timeout         time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type TMDBClient struct {
	baseURL string
	token   string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[any]
}

func NewTMDBClient(opts Options) *TMDBClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	failures := opts.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Answers TMDB gave on purpose and caller cancellations say nothing
		// about TMDB health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ports.ErrCatalogNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("catalog circuit breaker state change")
			metrics.CatalogCircuitState.Set(float64(to))
		},
	})

	return &TMDBClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.ReadAccessToken,
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: opts.Timeout},
		cb:      cb,
	}
}

// PosterURL turns a TMDB poster path into a full image URL.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}

// Wire formats.

type movieResult struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	GenreIDs      []int   `json:"genre_ids"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
}

type pageResponse struct {
	Page         int            `json:"page"`
	Results      *[]movieResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type detailsResponse struct {
	ID            int            `json:"id"`
	IMDBID        string         `json:"imdb_id"`
	Title         string         `json:"title"`
	OriginalTitle string         `json:"original_title"`
	Overview      string         `json:"overview"`
	Tagline       string         `json:"tagline"`
	ReleaseDate   string         `json:"release_date"`
	Runtime       int            `json:"runtime"`
	Status        string         `json:"status"`
	Homepage      string         `json:"homepage"`
	PosterPath    string         `json:"poster_path"`
	BackdropPath  string         `json:"backdrop_path"`
	VoteAverage   float64        `json:"vote_average"`
	VoteCount     int            `json:"vote_count"`
	Genres        []domain.Genre `json:"genres"`
	Companies     []struct {
		ID            int    `json:"id"`
		Name          string `json:"name"`
		LogoPath      string `json:"logo_path"`
		OriginCountry string `json:"origin_country"`
	} `json:"production_companies"`
	Countries []struct {
		Name string `json:"name"`
	} `json:"production_countries"`
	Languages []struct {
		EnglishName string `json:"english_name"`
		Name        string `json:"name"`
	} `json:"spoken_languages"`
	Credits struct {
		Cast []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Character   string `json:"character"`
			Order       int    `json:"order"`
			ProfilePath string `json:"profile_path"`
		} `json:"cast"`
		Crew []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Job         string `json:"job"`
			Department  string `json:"department"`
			ProfilePath string `json:"profile_path"`
		} `json:"crew"`
	} `json:"credits"`
}

func (c *TMDBClient) SearchMovies(ctx context.Context, query string, page int) (*domain.CatalogPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(normalizePage(page)))
	return c.fetchPage(ctx, "search", "/search/movie", q)
}

func (c *TMDBClient) PopularMovies(ctx context.Context, page int) (*domain.CatalogPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(normalizePage(page)))
	return c.fetchPage(ctx, "popular", "/movie/popular", q)
}

func (c *TMDBClient) GetMovieDetails(ctx context.Context, tmdbID int) (*domain.CatalogMovieDetails, error) {
	q := url.Values{}
	q.Set("append_to_response", "credits")

	var d detailsResponse
	if err := c.call(ctx, "details", "/movie/"+strconv.Itoa(tmdbID), q, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func (c *TMDBClient) fetchPage(ctx context.Context, op, endpoint string, q url.Values) (*domain.CatalogPage, error) {
	var res pageResponse
	if err := c.call(ctx, op, endpoint, q, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		metrics.RecordCatalogRequest(op, "malformed")
		return nil, ErrMalformedResponse
	}

	out := &domain.CatalogPage{
		Page:         res.Page,
		TotalPages:   res.TotalPages,
		TotalResults: res.TotalResults,
		Results:      make([]domain.CatalogMovie, 0, len(*res.Results)),
	}
	for _, r := range *res.Results {
		out.Results = append(out.Results, domain.CatalogMovie{
			ID:            r.ID,
			Title:         r.Title,
			OriginalTitle: r.OriginalTitle,
			Overview:      r.Overview,
			ReleaseDate:   r.ReleaseDate,
			PosterPath:    r.PosterPath,
			BackdropPath:  r.BackdropPath,
			GenreIDs:      r.GenreIDs,
			Popularity:    r.Popularity,
			VoteAverage:   r.VoteAverage,
			VoteCount:     r.VoteCount,
		})
	}
	return out, nil
}

// call performs one GET through the circuit breaker and decodes the JSON body into dst.
func (c *TMDBClient) call(ctx context.Context, op, endpoint string, q url.Values, dst any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, endpoint, q, dst)
	})

	switch {
	case err == nil:
		metrics.RecordCatalogRequest(op, "ok")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCatalogRequest(op, "rejected")
		return fmt.Errorf("%w: %v", ports.ErrCatalogUnavailable, err)
	case errors.Is(err, ports.ErrCatalogNotFound):
		metrics.RecordCatalogRequest(op, "not_found")
		return err
	default:
		metrics.RecordCatalogRequest(op, "error")
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Msg("catalog request failed")
		return err
	}
}

func (c *TMDBClient) do(ctx context.Context, endpoint string, q url.Values, dst any) error {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("tmdb url: %w", err)
	}
	q.Set("language", language)
	if c.token == "" {
		q.Set("api_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ports.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ports.ErrCatalogNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: TMDB returned %d", ports.ErrCatalogUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

func (d *detailsResponse) toDomain() *domain.CatalogMovieDetails {
	out := &domain.CatalogMovieDetails{
		ID:                  d.ID,
		IMDBID:              d.IMDBID,
		Title:               d.Title,
		OriginalTitle:       d.OriginalTitle,
		Overview:            d.Overview,
		Tagline:             d.Tagline,
		ReleaseDate:         d.ReleaseDate,
		Runtime:             d.Runtime,
		Status:              d.Status,
		Homepage:            d.Homepage,
		PosterPath:          d.PosterPath,
		BackdropPath:        d.BackdropPath,
		Genres:              d.Genres,
		VoteAverage:         d.VoteAverage,
		VoteCount:           d.VoteCount,
		ProductionCompanies: []domain.ProductionCompany{},
		ProductionCountries: []string{},
		SpokenLanguages:     []string{},
		Cast:                []domain.CastMember{},
		Crew:                []domain.CrewMember{},
	}
	for _, pc := range d.Companies {
		out.ProductionCompanies = append(out.ProductionCompanies, domain.ProductionCompany{
			ID: pc.ID, Name: pc.Name, LogoPath: pc.LogoPath, OriginCountry: pc.OriginCountry,
		})
	}
	for _, c := range d.Countries {
		out.ProductionCountries = append(out.ProductionCountries, c.Name)
	}
	for _, l := range d.Languages {
		name := l.EnglishName
		if name == "" {
			name = l.Name
		}
		out.SpokenLanguages = append(out.SpokenLanguages, name)
	}
	for _, m := range d.Credits.Cast {
		out.Cast = append(out.Cast, domain.CastMember{
			ID: m.ID, Name: m.Name, Character: m.Character, Order: m.Order, ProfilePath: m.ProfilePath,
		})
	}
	for _, m := range d.Credits.Crew {
		out.Crew = append(out.Crew, domain.CrewMember{
			ID: m.ID, Name: m.Name, Job: m.Job, Department: m.Department, ProfilePath: m.ProfilePath,
		})
	}
	if out.Genres == nil {
		out.Genres = []domain.Genre{}
	}
	return out
}
