// Command addrsearch drives one search view from a terminal. Plain lines
// set the autocomplete query; lines starting with ':' are commands.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"casametrix_front/internal/apiclient"
	authservice "casametrix_front/internal/auth/service"
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/maps"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/searchview"
	"casametrix_front/internal/session"
	"casametrix_front/platform/config"
	"casametrix_front/platform/logger"

	"github.com/google/uuid"
)

const help = `commands:
  <text>          set the query
  :select N       save suggestion N
  :locate         request the current position
  :search <q>     search the golden index
  :reset          clear the quota flag
  :dismiss <id>   dismiss a toast
  :login <email> <password>
  :logout
  :state          print the full snapshot as JSON
  :quit           unmount and exit`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Logs go to stderr (or the configured file) so they never mix with the
	// rendered state on stdout.
	log := logger.NewWithOptions(logger.Options{
		Env:        cfg.GetEnv(),
		File:       cfg.GetLogFile(),
		MaxSizeMB:  cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAgeDays: cfg.GetLogMaxAgeDays(),
		Output:     os.Stderr,
	}).WithComponent("addrsearch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := apiclient.New("casametrix", cfg.GetAPIBaseURL(), cfg.GetAPITimeout(), log)
	if err != nil {
		log.Error("failed to initialize api client", "error", err)
		os.Exit(1)
	}

	var provider autocomplete.Provider
	switch cfg.GetAutocompleteProvider() {
	case "ban":
		ban, err := apiclient.New("ban", cfg.GetBANURL(), cfg.GetAPITimeout(), log)
		if err != nil {
			log.Error("failed to initialize ban client", "error", err)
			os.Exit(1)
		}
		provider = autocomplete.NewBANProvider(ban)
	case "nominatim":
		osm, err := apiclient.New("nominatim", cfg.GetNominatimURL(), cfg.GetAPITimeout(), log)
		if err != nil {
			log.Error("failed to initialize nominatim client", "error", err)
			os.Exit(1)
		}
		provider = maps.NewService(osm, cfg.GetNominatimCountryCodes())
	default:
		provider = autocomplete.NewCasametrixProvider(api)
	}

	var locators func(string) geolocation.Locator
	if lat, lng, ok := cfg.GetGeolocationStatic(); ok {
		loc := geolocation.Static(geo.Point{Lat: lat, Lng: lng})
		locators = func(string) geolocation.Locator { return loc }
	}

	clk := clock.Real()
	sessions := session.NewRegistry(session.NewMemoryStore(cfg.GetSessionTTL()), clk, log)
	defer sessions.Close()

	goldenClient := golden.NewClient(api)
	width, height := cfg.GetMapViewport()
	manager := searchview.NewManager(searchview.Deps{
		Provider: provider,
		Saver:    goldenClient,
		Searcher: goldenClient,
		Locators: locators,
		Renderer: mapsync.NewScene(geo.Viewport{Width: width, Height: height}, cfg.GetMapMaxZoom()),
		Sessions: sessions,
		Clock:    clk,
		Messages: messages.Default,
		Log:      log,
		Settings: searchview.Settings{
			Debounce:      cfg.GetAutocompleteDebounce(),
			MinChars:      cfg.GetAutocompleteMinChars(),
			Limit:         cfg.GetAutocompleteLimit(),
			ToastTTL:      cfg.GetToastTTL(),
			ToastMaxDepth: cfg.GetToastMaxDepth(),
			GeoTimeout:    cfg.GetGeolocationTimeout(),
			CloseZoom:     cfg.GetMapCloseZoom(),
			FitPadding:    cfg.GetMapFitPadding(),
			TileURL:       cfg.GetMapTileURL(),
		},
	})
	defer manager.Close()

	browserID := "terminal-" + uuid.NewString()
	view, err := manager.Mount(ctx, searchview.MountRequest{
		BrowserID: browserID,
		Container: "terminal",
	})
	if err != nil {
		log.Error("failed to mount view", "error", err)
		os.Exit(1)
	}

	updates, cancel := view.Subscribe()
	defer cancel()
	go func() {
		var last string
		for snap := range updates {
			if line := render(snap); line != last {
				fmt.Fprintln(os.Stdout, line)
				last = line
			}
		}
	}()

	d := &driver{
		view:      view,
		auth:      authservice.New(api, sessions, nil, clk, messages.Default, log),
		browserID: browserID,
		out:       os.Stdout,
	}

	fmt.Fprintln(os.Stdout, help)
	lines := make(chan string)
	go scan(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := d.dispatch(ctx, line); quit {
				return
			}
		}
	}
}

func scan(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

type authenticator interface {
	Login(ctx context.Context, browserID, email, password string) (authservice.User, error)
	Logout(ctx context.Context, browserID string) (string, error)
}

type driver struct {
	view      *searchview.View
	auth      authenticator
	browserID string
	out       io.Writer
}

// dispatch runs one input line against the view and reports whether the
// driver should exit.
func (d *driver) dispatch(ctx context.Context, line string) bool {
	w := d.out
	view := d.view
	if !strings.HasPrefix(line, ":") {
		report(w, view.SetQuery(line))
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "q":
		return true
	case "select":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(w, "usage: :select N")
			return false
		}
		report(w, view.Select(n))
	case "locate":
		_, err := view.Locate(nil)
		report(w, err)
	case "search":
		_, err := view.Search(arg)
		report(w, err)
	case "reset":
		report(w, view.ResetQuota())
	case "dismiss":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintln(w, "usage: :dismiss <id>")
			return false
		}
		report(w, view.DismissToast(id))
	case "login":
		email, password, ok := strings.Cut(arg, " ")
		if !ok || d.auth == nil {
			fmt.Fprintln(w, "usage: :login <email> <password>")
			return false
		}
		user, err := d.auth.Login(ctx, d.browserID, email, strings.TrimSpace(password))
		if err != nil {
			report(w, err)
			return false
		}
		fmt.Fprintln(w, "logged in as", user.Email)
	case "logout":
		if d.auth == nil {
			return false
		}
		msg, err := d.auth.Logout(ctx, d.browserID)
		if err != nil {
			report(w, err)
			return false
		}
		fmt.Fprintln(w, msg)
	case "state":
		snap, err := view.Snapshot()
		if err != nil {
			report(w, err)
			return false
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
	default:
		fmt.Fprintln(w, help)
	}
	return false
}

func report(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintln(w, "error:", err)
	}
}

// render prints the parts of a snapshot a person scans for.
func render(s searchview.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] query=%q", s.QuotaLabel, s.Autocomplete.Query)
	if s.Autocomplete.Loading {
		b.WriteString(" (loading)")
	}
	for i, sug := range s.Autocomplete.Suggestions {
		fmt.Fprintf(&b, "\n  %d. %s", i, sug.Label)
	}
	if s.Selection.Saved != nil {
		fmt.Fprintf(&b, "\n  saved: %s", s.Selection.Saved.Address)
	}
	if p := s.Geolocation.Position; p != nil {
		fmt.Fprintf(&b, "\n  position: %.5f, %.5f", p.Lat, p.Lng)
	}
	if c := s.Map.Center; s.Map.Initialized && c != nil {
		fmt.Fprintf(&b, "\n  map: center=%.5f,%.5f zoom=%.2f", c.Lat, c.Lng, s.Map.Zoom)
	}
	for _, r := range s.Search.Results {
		fmt.Fprintf(&b, "\n  result: %s", r.Address)
	}
	if s.QuotaHint != "" {
		fmt.Fprintf(&b, "\n  %s", s.QuotaHint)
	}
	for _, t := range s.Toasts {
		fmt.Fprintf(&b, "\n  #%d %s: %s", t.ID, t.Kind, t.Message)
	}
	return b.String()
}
