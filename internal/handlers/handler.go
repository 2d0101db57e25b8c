package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/config"
	"github.com/eldtechnologies/hookcase/internal/deferred"
	"github.com/eldtechnologies/hookcase/internal/forms"
	"github.com/eldtechnologies/hookcase/internal/optimistic"
	"github.com/eldtechnologies/hookcase/internal/resource"
	"github.com/eldtechnologies/hookcase/internal/session"
	"github.com/eldtechnologies/hookcase/internal/store"
	"github.com/eldtechnologies/hookcase/internal/tabs"
	"github.com/eldtechnologies/hookcase/internal/theme"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// Thread IDs: alphanumeric, hyphens, underscores, 1-50 chars
var threadIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

const maxTextLength = 4096

// Deps are the backends a Handler serves from.
type Deps struct {
	Data          store.DataStore
	DataDriver    string // "postgres", "sqlite" or "memory"
	Messages      store.MessageStore
	MessageDriver string // "redis" or "memory"
	Hub           *optimistic.Hub
	HTTPClient    *http.Client
	Config        *config.Config
	Logger        zerolog.Logger

	// Remote endpoints for the resource examples; empty uses the public APIs.
	JokeURL  string
	PostsURL string
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	data          store.DataStore
	dataDriver    string
	messages      store.MessageStore
	messageDriver string
	hub           *optimistic.Hub
	logger        zerolog.Logger
	started       time.Time

	// done is closed to end open event streams
	done     chan struct{}
	stopOnce sync.Once

	posts     *forms.PostForm
	slowPosts *forms.SlowPostForm
	cart      *forms.Cart

	themes      *session.Registry[*theme.Provider]
	formStatus  *session.Registry[*forms.Status]
	cartActions *session.Registry[*forms.Action[forms.CartState, string]]
	searches    *session.Registry[*deferred.Box]
	tabs        *session.Registry[*tabs.Switcher]

	jokes        *resource.Cache[resource.Joke]
	remotePosts  *resource.Cache[[]resource.RemotePost]
	downloads    *resource.Cache[string]
	fetchJoke    resource.Fetcher[resource.Joke]
	fetchPosts   resource.Fetcher[[]resource.RemotePost]
	fetchMessage resource.Fetcher[string]
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(d Deps) *Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	jokeURL := d.JokeURL
	if jokeURL == "" {
		jokeURL = resource.DefaultJokeURL
	}
	postsURL := d.PostsURL
	if postsURL == "" {
		postsURL = resource.DefaultPostsURL
	}

	posts := forms.NewPostForm(d.Data, d.Logger)
	lag := cfg.DeferLag

	return &Handler{
		data:          d.Data,
		dataDriver:    d.DataDriver,
		messages:      d.Messages,
		messageDriver: d.MessageDriver,
		hub:           d.Hub,
		logger:        d.Logger,
		started:       time.Now(),
		done:          make(chan struct{}),

		posts:     posts,
		slowPosts: forms.NewSlowPostForm(posts, cfg.FormDelay, d.Logger),
		cart:      forms.NewCart(d.Data, cfg.CartDelay, d.Logger),

		themes:      session.NewRegistry(theme.NewProvider, nil),
		formStatus:  session.NewRegistry(func() *forms.Status { return &forms.Status{} }, nil),
		cartActions: session.NewRegistry(forms.NewCartAction, nil),
		searches: session.NewRegistry(
			func() *deferred.Box { return deferred.NewBox(deferred.DefaultItems, lag) },
			(*deferred.Box).Close,
		),
		tabs: session.NewRegistry(
			func() *tabs.Switcher { return tabs.NewSwitcher(tabs.DefaultRenderer(time.Millisecond)) },
			(*tabs.Switcher).Close,
		),

		jokes:        resource.NewCache[resource.Joke](0),
		remotePosts:  resource.NewCache[[]resource.RemotePost](0),
		downloads:    resource.NewCache[string](0),
		fetchJoke:    resource.JokeFetcher(client, jokeURL),
		fetchPosts:   resource.PostsFetcher(client, postsURL),
		fetchMessage: resource.DelayedMessage(cfg.FetchDelay),
	}
}

// ThemeFor returns the theme provider of a session. The session middleware
// uses it to put the provider in the request context.
func (h *Handler) ThemeFor(sessionID string) *theme.Provider {
	return h.themes.Get(sessionID)
}

// SessionCount returns the number of sessions holding example state.
func (h *Handler) SessionCount() int {
	seen := make(map[string]struct{})
	for _, ids := range [][]string{
		h.themes.IDs(),
		h.formStatus.IDs(),
		h.cartActions.IDs(),
		h.searches.IDs(),
		h.tabs.IDs(),
	} {
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// Sweep drops per-session state, downloads and thread queues idle for longer
// than maxIdle, and returns how many items were dropped.
func (h *Handler) Sweep(maxIdle time.Duration) int {
	n := h.themes.Sweep(maxIdle)
	n += h.formStatus.Sweep(maxIdle)
	n += h.cartActions.Sweep(maxIdle)
	n += h.searches.Sweep(maxIdle)
	n += h.tabs.Sweep(maxIdle)
	n += h.downloads.Sweep(maxIdle)
	if h.hub != nil {
		n += h.hub.Sweep(maxIdle)
	}
	return n
}

// StopStreams ends every open event stream. Servers register it with
// RegisterOnShutdown so streams do not hold up a graceful shutdown.
func (h *Handler) StopStreams() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Close ends event streams and releases per-session state, stopping timers
// and renders.
func (h *Handler) Close() {
	h.StopStreams()
	h.themes.Close()
	h.formStatus.Close()
	h.cartActions.Close()
	h.searches.Close()
	h.tabs.Close()
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// fail maps a domain error to a response. Unexpected errors are logged and
// reported as message.
func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	if ve, ok := validation.As(err); ok {
		h.logger.Warn().Str("field", ve.Field).Str("reason", ve.Reason).Msg("invalid input")
		h.Error(w, http.StatusBadRequest, ve.Error())
		return
	}

	switch {
	case errors.Is(err, forms.ErrBusy):
		h.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, optimistic.ErrNotPending):
		h.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, optimistic.ErrClosed):
		h.Error(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.Error(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error().Err(err).Msg(message)
		h.Error(w, http.StatusInternalServerError, message)
	}
}

// sessionID returns the caller's session, or a shared one for requests that
// bypassed the session middleware.
func sessionID(r *http.Request) string {
	if id := session.IDFromContext(r.Context()); id != "" {
		return id
	}
	return "anonymous"
}

// formValues reads a request body that is either a JSON object of strings or
// a urlencoded form.
func formValues(r *http.Request) (url.Values, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}

	values := url.Values{}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		return nil, err
	}
	for k, v := range body {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case float64:
			values.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			values.Set(k, strconv.FormatBool(v))
		}
	}
	return values, nil
}
