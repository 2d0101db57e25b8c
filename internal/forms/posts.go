// Package forms implements the form examples: a post form with validation, a
// slow post form that reports its pending status, an action-state reducer and
// a shopping cart.
package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/store"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// Form names used in metrics and logs.
const (
	FormPost     = "post"
	FormSlowPost = "slow_post"
	FormCart     = "cart"
	FormAction   = "action_state"
)

// ErrBusy is returned when a form is submitted while a previous submission of
// it is still pending.
var ErrBusy = errors.New("form submission already pending")

// PostInput is a validated post form.
type PostInput struct {
	Title string
	Body  string
}

// ParsePost reads title and body from form values. Both are required.
func ParsePost(values url.Values) (PostInput, error) {
	in := PostInput{
		Title: strings.TrimSpace(values.Get("title")),
		Body:  strings.TrimSpace(values.Get("body")),
	}
	if in.Title == "" {
		return PostInput{}, validation.New("title", "is required")
	}
	if in.Body == "" {
		return PostInput{}, validation.New("body", "is required")
	}
	return in, nil
}

// PostForm stores posts submitted through the post form.
type PostForm struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewPostForm creates a post form backed by s.
func NewPostForm(s store.DataStore, logger zerolog.Logger) *PostForm {
	return &PostForm{store: s, logger: logger.With().Str("form", FormPost).Logger()}
}

// Submit validates values and stores the post. Invalid submissions are logged
// and dropped.
func (f *PostForm) Submit(ctx context.Context, values url.Values) (*models.Post, error) {
	in, err := ParsePost(values)
	if err != nil {
		f.logger.Warn().Err(err).Msg("title and body are both required to create a post")
		metrics.FormSubmissions.WithLabelValues(FormPost, "invalid").Inc()
		return nil, err
	}

	post, err := f.store.CreatePost(ctx, in.Title, in.Body)
	if err != nil {
		return nil, err
	}
	metrics.FormSubmissions.WithLabelValues(FormPost, "accepted").Inc()
	return post, nil
}

// List returns stored posts, oldest first.
func (f *PostForm) List(ctx context.Context, limit int) ([]models.Post, error) {
	return f.store.ListPosts(ctx, limit)
}

// SlowPostForm is a post form whose submission takes Delay to complete.
type SlowPostForm struct {
	posts  *PostForm
	delay  time.Duration
	logger zerolog.Logger
}

// NewSlowPostForm wraps posts with a submission delay.
func NewSlowPostForm(posts *PostForm, delay time.Duration, logger zerolog.Logger) *SlowPostForm {
	return &SlowPostForm{
		posts:  posts,
		delay:  delay,
		logger: logger.With().Str("form", FormSlowPost).Logger(),
	}
}

// Submit marks status pending, waits out the delay and stores the post. It
// returns ErrBusy without waiting if status is already pending.
func (f *SlowPostForm) Submit(ctx context.Context, status *Status, values url.Values) (*models.Post, error) {
	in, err := ParsePost(values)
	if err != nil {
		f.logger.Warn().Err(err).Msg("rejected slow post")
		metrics.FormSubmissions.WithLabelValues(FormSlowPost, "invalid").Inc()
		return nil, err
	}

	done, err := status.Begin()
	if err != nil {
		metrics.FormSubmissions.WithLabelValues(FormSlowPost, "busy").Inc()
		return nil, err
	}
	defer done()

	if err := wait(ctx, f.delay); err != nil {
		return nil, err
	}

	post, err := f.posts.store.CreatePost(ctx, in.Title, in.Body)
	if err != nil {
		return nil, err
	}
	metrics.FormSubmissions.WithLabelValues(FormSlowPost, "accepted").Inc()
	return post, nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
