package domain

import (
	"strconv"
	"strings"
)

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profilePath,omitempty"`
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profilePath,omitempty"`
}

// Film is our persisted copy of a catalog movie. Display fields are copied
// once at creation and never refreshed.
type Film struct {
	ID             string       `json:"id"`
	TMDBID         *int         `json:"tmdbId,omitempty"`
	Title          string       `json:"title"`
	ReleaseYear    *int         `json:"releaseYear,omitempty"`
	PosterURL      string       `json:"posterUrl,omitempty"`
	Directors      []CrewMember `json:"directors,omitempty"`
	Cast           []CastMember `json:"cast,omitempty"`
	Synopsis       string       `json:"synopsis,omitempty"`
	RuntimeMinutes *int         `json:"runtimeMinutes,omitempty"`
	Genres         []Genre      `json:"genres,omitempty"`
	AverageRating  float64      `json:"averageRating"`
	TotalRatings   int          `json:"totalRatings"`
}

// ReleaseYearFromDate takes the year out of a year-first date string such
// as "2002-07-07". Empty or malformed input yields nil.
func ReleaseYearFromDate(date string) *int {
	yearStr, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	if len(yearStr) != 4 {
		return nil
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

// Directors filters crew down to members credited as "Director".
func Directors(crew []CrewMember) []CrewMember {
	var out []CrewMember
	for _, c := range crew {
		if c.Job == "Director" {
			out = append(out, c)
		}
	}
	return out
}

// CatalogMovie is a single search or popular result from the external catalog.
type CatalogMovie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"originalTitle"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"releaseDate"`
	PosterPath    string  `json:"posterPath,omitempty"`
	BackdropPath  string  `json:"backdropPath,omitempty"`
	GenreIDs      []int   `json:"genreIds,omitempty"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"voteAverage"`
	VoteCount     int     `json:"voteCount"`
}

type CatalogPage struct {
	Page         int            `json:"page"`
	Results      []CatalogMovie `json:"results"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
}

type ProductionCompany struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logoPath,omitempty"`
	OriginCountry string `json:"originCountry"`
}

// CatalogMovieDetails is the full detail payload for one catalog movie.
type CatalogMovieDetails struct {
	ID                  int                 `json:"id"`
	IMDBID              string              `json:"imdbId,omitempty"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"originalTitle"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline,omitempty"`
	ReleaseDate         string              `json:"releaseDate"`
	Runtime             int                 `json:"runtime"`
	Status              string              `json:"status"`
	Homepage            string              `json:"homepage,omitempty"`
	PosterPath          string              `json:"posterPath,omitempty"`
	BackdropPath        string              `json:"backdropPath,omitempty"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"productionCompanies"`
	ProductionCountries []string            `json:"productionCountries"`
	SpokenLanguages     []string            `json:"spokenLanguages"`
	VoteAverage         float64             `json:"voteAverage"`
	VoteCount           int                 `json:"voteCount"`
	Cast                []CastMember        `json:"cast"`
	Crew                []CrewMember        `json:"crew"`
}
