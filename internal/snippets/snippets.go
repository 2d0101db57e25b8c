// Package snippets serves the source listing shown next to each example.
package snippets

import (
	"embed"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed data/*.jsx
var files embed.FS

// ErrNotFound is returned for unknown snippet names.
var ErrNotFound = errors.New("snippet not found")

// Get returns the snippet called name.
func Get(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return "", ErrNotFound
	}
	b, err := files.ReadFile(path.Join("data", name+".jsx"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(b), nil
}

// Names lists every snippet, sorted.
func Names() []string {
	entries, _ := files.ReadDir("data")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".jsx"))
	}
	sort.Strings(names)
	return names
}

// Example describes one demo: the hook it shows, its snippet and the
// endpoint that drives it.
type Example struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Hook     string `json:"hook"`
	Snippet  string `json:"snippet"`
	Endpoint string `json:"endpoint"`
}

var examples = []Example{
	{ID: "optimistic", Title: "Optimistic messages", Hook: "useOptimistic", Snippet: "useOptimistic", Endpoint: "/threads/{id}/messages"},
	{ID: "deferred", Title: "Deferred search", Hook: "useDeferredValue", Snippet: "useDeferredValue", Endpoint: "/search"},
	{ID: "transition", Title: "Tabs", Hook: "useTransition", Snippet: "useTransition", Endpoint: "/tabs"},
	{ID: "use1", Title: "Jokes", Hook: "use", Snippet: "use1", Endpoint: "/resources/joke"},
	{ID: "use2", Title: "Posts", Hook: "use", Snippet: "use2", Endpoint: "/resources/posts"},
	{ID: "use3", Title: "Download message", Hook: "use", Snippet: "use3", Endpoint: "/resources/message"},
	{ID: "use4", Title: "Themed card", Hook: "use", Snippet: "use4", Endpoint: "/theme"},
	{ID: "action1", Title: "Post form", Hook: "form action", Snippet: "action1", Endpoint: "/posts"},
	{ID: "action2", Title: "Shopping cart", Hook: "form action", Snippet: "action2", Endpoint: "/cart"},
	{ID: "action-state", Title: "Add to cart feedback", Hook: "useActionState", Snippet: "useActionState", Endpoint: "/cart/action"},
	{ID: "form-status", Title: "Slow post form", Hook: "useFormStatus", Snippet: "useFormStatus", Endpoint: "/posts/slow"},
}

// Examples returns the example registry.
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}
