package reviews

import "github.com/jrsteele09/go-tourbook/api"

// ReviewAuthor is the reviewer's embedded profile.
type ReviewAuthor struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	PhotoURL  *string `json:"photoUrl,omitempty"`
}

// Review is a package review as served by the backend.
type Review struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	PackageID    string       `json:"packageId"`
	BookingID    *string      `json:"bookingId,omitempty"`
	Rating       int          `json:"rating"`
	Title        *string      `json:"title,omitempty"`
	Comment      *string      `json:"comment,omitempty"`
	Images       []string     `json:"images"`
	IsVerified   bool         `json:"isVerified"`
	IsApproved   bool         `json:"isApproved"`
	HelpfulVotes int          `json:"helpfulVotes"`
	CreatedAt    string       `json:"createdAt"`
	UpdatedAt    string       `json:"updatedAt"`
	User         ReviewAuthor `json:"user"`
}

// ListResponse is the paginated review listing envelope. Unlike the other
// list endpoints, reviews arrive under a "reviews" key.
type ListResponse struct {
	Reviews    []Review       `json:"reviews"`
	Pagination api.Pagination `json:"pagination"`
}

// CreateReview is the payload for a new review.
type CreateReview struct {
	PackageID string   `json:"packageId"`
	Rating    int      `json:"rating"`
	Title     string   `json:"title,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Images    []string `json:"images,omitempty"`
}
