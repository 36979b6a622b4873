package tours

import (
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-tourbook/api"
)

// Package is a bookable tour as served by the backend. Decimal money fields
// arrive as strings.
type Package struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      *string  `json:"description,omitempty"`
	ShortDescription *string  `json:"shortDescription,omitempty"`
	Price            string   `json:"price"`
	OriginalPrice    *string  `json:"originalPrice,omitempty"`
	Currency         string   `json:"currency"`
	Duration         int      `json:"duration"`
	MaxGuests        int      `json:"maxGuests"`
	MinAge           *int     `json:"minAge,omitempty"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	LocationName     string   `json:"locationName"`
	Country          *string  `json:"country,omitempty"`
	Coordinates      *string  `json:"coordinates,omitempty"`
	Images           []string `json:"images"`
	CoverImage       *string  `json:"coverImage,omitempty"`
	Highlights       []string `json:"highlights"`
	Includes         []string `json:"includes"`
	Excludes         []string `json:"excludes"`
	IsActive         bool     `json:"isActive"`
	IsAvailable      bool     `json:"isAvailable"`
	AvailableFrom    *string  `json:"availableFrom,omitempty"`
	AvailableTo      *string  `json:"availableTo,omitempty"`
	Slug             *string  `json:"slug,omitempty"`
	Tags             []string `json:"tags"`
	Rating           *float64 `json:"rating,omitempty"`
	ReviewCount      int      `json:"reviewCount"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
}

// ListResponse is the paginated package listing envelope.
type ListResponse struct {
	Data       []Package      `json:"data"`
	Pagination api.Pagination `json:"pagination"`
}

// Filters narrow a package listing. Zero values are omitted from the query.
type Filters struct {
	Search       string
	Category     string
	Difficulty   string
	LocationName string
	Country      string
	MinPrice     float64
	MaxPrice     float64
	MinDuration  int
	MaxDuration  int
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// Values encodes the filters as URL query parameters.
func (f Filters) Values() url.Values {
	values := url.Values{}
	setString := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	setString("search", f.Search)
	setString("category", f.Category)
	setString("difficulty", f.Difficulty)
	setString("locationName", f.LocationName)
	setString("country", f.Country)
	setString("sortBy", f.SortBy)
	setString("sortOrder", f.SortOrder)

	if f.MinPrice > 0 {
		values.Set("minPrice", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		values.Set("maxPrice", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	if f.MinDuration > 0 {
		values.Set("minDuration", strconv.Itoa(f.MinDuration))
	}
	if f.MaxDuration > 0 {
		values.Set("maxDuration", strconv.Itoa(f.MaxDuration))
	}
	if f.Page > 0 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		values.Set("limit", strconv.Itoa(f.Limit))
	}
	return values
}
