// Package hookcase provides a client for the hookcase example server.
package hookcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultThread is the thread used when none is given.
const DefaultThread = "general"

// SessionCookie names the cookie carrying the server session.
const SessionCookie = "hookcase_session"

// Client is a hookcase API client. It keeps one server session, so theme,
// search, tabs and cart state carry over between calls.
type Client struct {
	BaseURL    string
	ConfigDir  string
	HTTPClient *http.Client
}

// NewClient creates a new client and restores a saved session if present.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	configDir := os.Getenv("HOOKCASE_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".hookcase")
	}

	jar, _ := cookiejar.New(nil)
	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}

	_ = c.LoadSession()
	return c
}

func (c *Client) sessionFile() string {
	return filepath.Join(c.ConfigDir, "session")
}

// LoadSession restores the session cookie from disk.
func (c *Client) LoadSession() error {
	data, err := os.ReadFile(c.sessionFile())
	if err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	c.HTTPClient.Jar.SetCookies(u, []*http.Cookie{{
		Name:  SessionCookie,
		Value: strings.TrimSpace(string(data)),
		Path:  "/",
	}})
	return nil
}

// SaveSession writes the current session cookie to disk.
func (c *Client) SaveSession() error {
	id := c.SessionID()
	if id == "" {
		return nil
	}
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile(), []byte(id), 0600)
}

// SessionID returns the session the server assigned, or "".
func (c *Client) SessionID() string {
	if c.HTTPClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTPClient.Jar.Cookies(u) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hookcase error %d: %s", e.Status, e.Message)
}

// doRequest performs an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(respBody)
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Entry is one line of a thread's view.
type Entry struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Sending bool   `json:"sending,omitempty"`
}

// Message is a confirmed message.
type Message struct {
	ID        string `json:"id"`
	Thread    string `json:"thread"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"`
}

// Pending is an in-flight submission.
type Pending struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SubmittedAt int64  `json:"submitted_at"`
}

// Failure is a rolled-back submission.
type Failure struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Error    string `json:"error"`
	FailedAt int64  `json:"failed_at"`
}

// ThreadResponse is a thread snapshot.
type ThreadResponse struct {
	Thread    string    `json:"thread"`
	Confirmed []Message `json:"confirmed"`
	Pending   []Pending `json:"pending"`
	View      []Entry   `json:"view"`
	Failures  []Failure `json:"failures"`
}

// SendResponse is returned as soon as a message is pending.
type SendResponse struct {
	Pending Pending `json:"pending"`
	View    []Entry `json:"view"`
}

// Thread returns a thread snapshot.
func (c *Client) Thread(thread string) (*ThreadResponse, error) {
	var resp ThreadResponse
	if err := c.doRequest("GET", "/threads/"+url.PathEscape(thread)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send submits a message optimistically.
func (c *Client) Send(thread, text string) (*SendResponse, error) {
	var resp SendResponse
	err := c.doRequest("POST", "/threads/"+url.PathEscape(thread)+"/messages", map[string]string{"text": text}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel aborts a pending send.
func (c *Client) Cancel(thread, pendingID string) error {
	return c.doRequest("DELETE", "/threads/"+url.PathEscape(thread)+"/pending/"+url.PathEscape(pendingID), nil, nil)
}

// Post is a stored post.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Posts lists stored posts.
func (c *Client) Posts() ([]Post, error) {
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.doRequest("GET", "/posts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// CreatePost submits the post form. With slow set it uses the slow form,
// which blocks until the submission completes.
func (c *Client) CreatePost(title, body string, slow bool) (*Post, error) {
	path := "/posts"
	if slow {
		path = "/posts/slow"
	}
	var post Post
	if err := c.doRequest("POST", path, map[string]string{"title": title, "body": body}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CartItem is an item in the cart.
type CartItem struct {
	ID      string    `json:"id"`
	ItemID  string    `json:"item_id"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"added_at"`
}

// CartResponse is the session's cart.
type CartResponse struct {
	Items   []CartItem `json:"items"`
	Catalog []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"catalog"`
}

// Cart returns the session's cart.
func (c *Client) Cart() (*CartResponse, error) {
	var resp CartResponse
	if err := c.doRequest("GET", "/cart", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddToCart adds a catalog item to the cart.
func (c *Client) AddToCart(itemID string) (*CartItem, error) {
	var item CartItem
	if err := c.doRequest("POST", "/cart", map[string]string{"item_id": itemID}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ActionState is the feedback from the add-to-cart action.
type ActionState struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// CartAction runs the add-to-cart action.
func (c *Client) CartAction(itemID string) (*ActionState, error) {
	var state ActionState
	if err := c.doRequest("POST", "/cart/action", map[string]string{"item_id": itemID}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Joke is a random joke.
type Joke struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Joke returns the cached joke.
func (c *Client) Joke() (*Joke, error) {
	var joke Joke
	if err := c.doRequest("GET", "/resources/joke", nil, &joke); err != nil {
		return nil, err
	}
	return &joke, nil
}

// Download is the state of the message download.
type Download struct {
	State   string `json:"state"`
	Value   string `json:"value,omitempty"`
	Display string `json:"display"`
}

// StartDownload starts a fresh message download.
func (c *Client) StartDownload() (*Download, error) {
	var d Download
	if err := c.doRequest("POST", "/resources/message", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Download reports the message download.
func (c *Client) Download() (*Download, error) {
	var d Download
	if err := c.doRequest("GET", "/resources/message", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ThemeCard is the themed card.
type ThemeCard struct {
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ButtonLabel string `json:"button_label"`
}

// Theme returns the session's themed card.
func (c *Client) Theme() (*ThemeCard, error) {
	var card ThemeCard
	if err := c.doRequest("GET", "/theme", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ToggleTheme flips the session's theme.
func (c *Client) ToggleTheme() (*ThemeCard, error) {
	var card ThemeCard
	if err := c.doRequest("POST", "/theme/toggle", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// SearchSnapshot is the search box state.
type SearchSnapshot struct {
	Live     string   `json:"live"`
	Deferred string   `json:"deferred"`
	Stale    bool     `json:"stale"`
	Results  []string `json:"results"`
}

// Search updates the live search term.
func (c *Client) Search(term string) (*SearchSnapshot, error) {
	var snap SearchSnapshot
	if err := c.doRequest("PUT", "/search", map[string]string{"term": term}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SearchResults returns the search box state, optionally letting the
// deferred term catch up first.
func (c *Client) SearchResults(flush bool) (*SearchSnapshot, error) {
	path := "/search"
	if flush {
		path += "?flush=true"
	}
	var snap SearchSnapshot
	if err := c.doRequest("GET", path, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// TabsSnapshot is the tab bar state.
type TabsSnapshot struct {
	Active  string `json:"active"`
	Pending bool   `json:"pending"`
	Target  string `json:"target,omitempty"`
	Content struct {
		Tab   string   `json:"tab"`
		Text  string   `json:"text,omitempty"`
		Posts []string `json:"posts,omitempty"`
	} `json:"content"`
}

// Tabs returns the tab bar state.
func (c *Client) Tabs() (*TabsSnapshot, error) {
	var snap TabsSnapshot
	if err := c.doRequest("GET", "/tabs", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SelectTab starts switching tabs.
func (c *Client) SelectTab(tab string) (*TabsSnapshot, error) {
	var snap TabsSnapshot
	if err := c.doRequest("POST", "/tabs/"+url.PathEscape(tab), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Snippet returns the source listing of an example.
func (c *Client) Snippet(name string) (string, error) {
	var text string
	if err := c.doRequest("GET", "/snippets/"+url.PathEscape(name), nil, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Example describes one demo.
type Example struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Hook     string `json:"hook"`
	Snippet  string `json:"snippet"`
	Endpoint string `json:"endpoint"`
}

// Examples lists the examples.
func (c *Client) Examples() ([]Example, error) {
	var resp struct {
		Examples []Example `json:"examples"`
	}
	if err := c.doRequest("GET", "/examples", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Examples, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest("GET", "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsResponse is the server's activity summary.
type StatsResponse struct {
	TotalPosts      int64    `json:"total_posts"`
	TotalMessages   int64    `json:"total_messages"`
	PendingMessages int      `json:"pending_messages"`
	Threads         []string `json:"threads"`
	Sessions        int      `json:"sessions"`
	Uptime          string   `json:"uptime"`
}

// Stats returns server statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.doRequest("GET", "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
