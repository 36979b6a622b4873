package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/bookings"
	"github.com/jrsteele09/go-tourbook/carousel"
	"github.com/jrsteele09/go-tourbook/googleauth"
	"github.com/jrsteele09/go-tourbook/health"
	"github.com/jrsteele09/go-tourbook/internal/config"
	"github.com/jrsteele09/go-tourbook/internal/utils"
	"github.com/jrsteele09/go-tourbook/reviews"
	"github.com/jrsteele09/go-tourbook/session"
	"github.com/jrsteele09/go-tourbook/session/filestore"
	"github.com/jrsteele09/go-tourbook/tours"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	cfg := config.New()
	log := newLogger(cfg.GetLogLevel())

	if len(args) == 0 {
		displayAppName(cfg.GetAppName())
		usage()
		return nil
	}

	client := api.New(cfg.GetAPIBaseURL(), cfg.GetRequestTimeout(),
		api.WithLogger(log),
		api.WithRefreshPath(session.RefreshPath),
	)
	manager, err := session.NewManager(client, filestore.New(cfg.GetDataFolder()), session.WithLogger(log))
	if err != nil {
		return err
	}
	manager.LoadStoredSession()

	app := &app{cfg: cfg, client: client, manager: manager, log: log}
	ctx := context.Background()

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return app.login(ctx, rest)
	case "register":
		return app.register(ctx, rest)
	case "google-login":
		return app.googleLogin(ctx)
	case "logout":
		app.manager.Logout()
		fmt.Println("Logged out.")
		return nil
	case "status":
		return app.status(ctx)
	case "tours":
		return app.tours(ctx, rest)
	case "tour":
		return app.tour(ctx, rest)
	case "bookings":
		return app.bookings(ctx)
	case "book":
		return app.book(ctx, rest)
	case "cancel":
		return app.cancel(ctx, rest)
	case "reviews":
		return app.reviews(ctx, rest)
	case "review":
		return app.review(ctx, rest)
	case "carousel":
		return app.carousel(ctx)
	case "health":
		return app.health(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

type app struct {
	cfg     config.Config
	client  *api.Client
	manager *session.Manager
	log     zerolog.Logger
}

func (a *app) login(ctx context.Context, args []string) error {
	email, password, err := credentialArgs(args)
	if err != nil {
		return err
	}

	loggedIn, err := a.manager.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", loggedIn.User.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: tourctl register <email> <password> <first-name> <last-name>")
	}

	registered, err := a.manager.Register(ctx, args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	fmt.Printf("Registered and logged in as %s\n", registered.User.Email)
	return nil
}

func (a *app) googleLogin(ctx context.Context) error {
	authenticator, err := googleauth.New(ctx,
		a.cfg.GetGoogleClientID(),
		a.cfg.GetGoogleClientSecret(),
		a.cfg.GetGoogleRedirectURL(),
	)
	if err != nil {
		return err
	}

	state := uuid.NewString()
	fmt.Println("Open the following URL in your browser and authorize access:")
	fmt.Println(authenticator.AuthCodeURL(state))

	code, err := prompt("Paste the authorization code: ")
	if err != nil {
		return err
	}

	idToken, claims, err := authenticator.Exchange(ctx, code)
	if err != nil {
		return err
	}

	signedIn, err := a.manager.GoogleSignIn(ctx, idToken, claims)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", signedIn.User.Email)
	return nil
}

func (a *app) status(ctx context.Context) error {
	current := a.manager.Current()
	if current == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("Logged in as %s\n", current.User.Email)
	if info, err := session.InspectAccessToken(current.AccessToken); err == nil {
		if info.Expired(session.NowTimeFunc()) {
			fmt.Println("Access token: expired (will refresh on next request)")
		} else {
			fmt.Printf("Access token: valid until %s\n", info.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
	}

	if a.manager.VerifySession(ctx) {
		fmt.Println("Session: verified")
	} else {
		fmt.Println("Session: invalid, please log in again")
	}
	return nil
}

func (a *app) tours(ctx context.Context, args []string) error {
	store := tours.NewStore(a.client)

	var err error
	if len(args) > 0 {
		err = store.Search(ctx, strings.Join(args, " "))
	} else {
		err = store.FetchPackages(ctx, tours.Filters{Page: 1, Limit: 20})
	}
	if err != nil {
		return err
	}

	for _, pkg := range store.Packages() {
		fmt.Printf("%-12s %-40s %s %s  %dd  %s\n",
			pkg.ID, pkg.Title, pkg.Price, pkg.Currency, pkg.Duration, pkg.LocationName)
	}
	if pagination := store.Pagination(); pagination != nil && pagination.HasMore() {
		fmt.Printf("(%d of %d shown)\n", len(store.Packages()), pagination.Total)
	}
	return nil
}

func (a *app) tour(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tourctl tour <id>")
	}

	store := tours.NewStore(a.client)
	if err := store.FetchByID(ctx, args[0]); err != nil {
		return err
	}

	pkg := store.Selected()
	fmt.Printf("%s\n%s %s  %d days  up to %d guests  %s\n",
		pkg.Title, pkg.Price, pkg.Currency, pkg.Duration, pkg.MaxGuests, pkg.LocationName)
	if pkg.Description != nil {
		fmt.Println(utils.Value(pkg.Description))
	}
	return nil
}

func (a *app) bookings(ctx context.Context) error {
	store := bookings.NewStore(a.client)
	if err := store.Fetch(ctx, 1, 20); err != nil {
		return err
	}

	held := store.Bookings()
	if len(held) == 0 {
		fmt.Println("No bookings.")
		return nil
	}
	for _, booking := range held {
		title := booking.PackageID
		if booking.Package != nil {
			title = booking.Package.Title
		}
		fmt.Printf("%-12s %-40s %-10s %s  %d guests\n",
			booking.ID, title, booking.Status, booking.StartDate, booking.Guests)
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: tourctl book <package-id> <start-date> <guests>")
	}
	guests, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("guests must be a number: %w", err)
	}

	store := bookings.NewStore(a.client)
	id, err := store.Create(ctx, bookings.CreateBooking{
		PackageID: args[0],
		StartDate: args[1],
		Guests:    guests,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Booking created: %s\n", id)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tourctl cancel <booking-id>")
	}

	store := bookings.NewStore(a.client)
	if err := store.Cancel(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Booking cancelled.")
	return nil
}

func (a *app) reviews(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tourctl reviews <package-id>")
	}

	store := reviews.NewStore(a.client)
	if err := store.Fetch(ctx, args[0], 1, 20); err != nil {
		return err
	}

	for _, review := range store.Reviews() {
		fmt.Printf("%s %s: %d/5  %s\n",
			review.User.FirstName, review.User.LastName, review.Rating, utils.Value(review.Comment))
	}
	return nil
}

func (a *app) review(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tourctl review <package-id> <rating> [comment]")
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}

	store := reviews.NewStore(a.client)
	_, err = store.Create(ctx, reviews.CreateReview{
		PackageID: args[0],
		Rating:    rating,
		Comment:   strings.Join(args[2:], " "),
	})
	if err != nil {
		if message := store.Err(); message != "" {
			return fmt.Errorf("%s", message)
		}
		return err
	}
	fmt.Println("Review submitted.")
	return nil
}

func (a *app) carousel(ctx context.Context) error {
	store := carousel.NewStore(a.client)
	if err := store.FetchActive(ctx); err != nil {
		return err
	}
	for _, item := range store.Items() {
		fmt.Printf("%-12s %-30s %s -> %s\n", item.ID, item.Title, item.ActionType, item.ActionValue)
	}
	return nil
}

func (a *app) health(ctx context.Context) error {
	store := health.NewStore(a.client)
	if err := store.Fetch(ctx); err != nil {
		return err
	}
	data := store.Data()
	fmt.Printf("Status: %s  Version: %s  Timestamp: %s\n", data.Status, data.Version, data.Timestamp)
	return nil
}

func credentialArgs(args []string) (string, string, error) {
	if len(args) >= 2 {
		return args[0], args[1], nil
	}

	email := ""
	if len(args) == 1 {
		email = args[0]
	} else {
		var err error
		if email, err = prompt("Email: "); err != nil {
			return "", "", err
		}
	}
	password, err := prompt("Password: ")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func displayAppName(appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println(`Usage: tourctl <command> [args]

Commands:
  login [email] [password]                      Log in with email and password
  register <email> <password> <first> <last>    Create an account
  google-login                                  Log in with Google
  logout                                        Log out and clear stored credentials
  status                                        Show the current session
  tours [search terms]                          List or search tour packages
  tour <id>                                     Show a tour package
  bookings                                      List your bookings
  book <package-id> <start-date> <guests>       Create a booking
  cancel <booking-id>                           Cancel a booking
  reviews <package-id>                          List reviews for a package
  review <package-id> <rating> [comment]        Submit a review
  carousel                                      Show active carousel items
  health                                        Show backend health`)
}
