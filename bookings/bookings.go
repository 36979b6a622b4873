package bookings

import "github.com/jrsteele09/go-tourbook/api"

// Booking statuses.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// BookingUser is the booking owner's embedded profile.
type BookingUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// BookingPackage is the booked tour's embedded summary.
type BookingPackage struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	LocationName string  `json:"locationName"`
	Duration     int     `json:"duration"`
	CoverImage   *string `json:"coverImage,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
}

// Booking is a tour reservation. TotalPrice is a decimal string as served by
// the backend.
type Booking struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	PackageID     string          `json:"packageId"`
	Status        string          `json:"status"`
	StartDate     string          `json:"startDate"`
	EndDate       *string         `json:"endDate,omitempty"`
	Guests        int             `json:"guests"`
	TotalPrice    string          `json:"totalPrice"`
	Currency      string          `json:"currency"`
	GuestNames    []string        `json:"guestNames"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentID     *string         `json:"paymentId,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	User          *BookingUser    `json:"user,omitempty"`
	Package       *BookingPackage `json:"package,omitempty"`
}

// ListResponse is the paginated booking listing envelope.
type ListResponse struct {
	Data       []Booking      `json:"data"`
	Pagination api.Pagination `json:"pagination"`
}

// CreateBooking is the payload for a new reservation.
type CreateBooking struct {
	PackageID  string   `json:"packageId"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate,omitempty"`
	Guests     int      `json:"guests"`
	GuestNames []string `json:"guestNames"`
	Notes      string   `json:"notes,omitempty"`
	TotalPrice float64  `json:"totalPrice,omitempty"`
	Currency   string   `json:"currency,omitempty"`
}
