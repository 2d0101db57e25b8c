package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultJokeURL  = "https://api.chucknorris.io/jokes/random"
	DefaultPostsURL = "https://jsonplaceholder.typicode.com/posts"

	// Message is what DelayedMessage resolves to.
	Message = "⚛️"
)

// Joke is a random joke from the jokes API.
type Joke struct {
	ID      string `json:"id"`
	Value   string `json:"value"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// RemotePost is a post from the placeholder API.
type RemotePost struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// JokeFetcher fetches one joke from url.
func JokeFetcher(client *http.Client, url string) Fetcher[Joke] {
	return func(ctx context.Context) (Joke, error) {
		var joke Joke
		err := getJSON(ctx, client, url, &joke)
		return joke, err
	}
}

// PostsFetcher fetches the post list from url.
func PostsFetcher(client *http.Client, url string) Fetcher[[]RemotePost] {
	return func(ctx context.Context) ([]RemotePost, error) {
		var posts []RemotePost
		err := getJSON(ctx, client, url, &posts)
		return posts, err
	}
}

// DelayedMessage resolves to Message after delay.
func DelayedMessage(delay time.Duration) Fetcher[string] {
	return func(ctx context.Context) (string, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return Message, nil
		}
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
