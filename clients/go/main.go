// hookcase CLI - command line client for the hookcase example server
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/eldtechnologies/hookcase/clients/go/hookcase"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := hookcase.NewClient(os.Getenv("HOOKCASE_URL"))
	defer client.SaveSession()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "stats":
		resp, err := client.Stats()
		exitOnError(err)
		printJSON(resp)

	case "examples":
		resp, err := client.Examples()
		exitOnError(err)
		for _, ex := range resp {
			fmt.Printf("  %-14s %-16s %s\n", ex.ID, ex.Hook, ex.Title)
		}

	case "snippet":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: hookcase snippet <name>")
			os.Exit(1)
		}
		text, err := client.Snippet(os.Args[2])
		exitOnError(err)
		fmt.Print(text)

	case "read":
		thread := hookcase.DefaultThread
		if len(os.Args) > 2 {
			thread = os.Args[2]
		}
		resp, err := client.Thread(thread)
		exitOnError(err)
		for _, e := range resp.View {
			suffix := ""
			if e.Sending {
				suffix = " (Sending...)"
			}
			fmt.Printf("  %s%s\n", e.Text, suffix)
		}
		for _, f := range resp.Failures {
			fmt.Printf("  ! %s: %s\n", f.Text, f.Error)
		}

	case "send":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: hookcase send <message> [thread]")
			os.Exit(1)
		}
		thread := hookcase.DefaultThread
		if len(os.Args) > 3 {
			thread = os.Args[3]
		}
		resp, err := client.Send(thread, os.Args[2])
		exitOnError(err)
		fmt.Printf("Pending: %s\n", resp.Pending.ID)

	case "cancel":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: hookcase cancel <pending_id> [thread]")
			os.Exit(1)
		}
		thread := hookcase.DefaultThread
		if len(os.Args) > 3 {
			thread = os.Args[3]
		}
		exitOnError(client.Cancel(thread, os.Args[2]))
		fmt.Println("Canceled")

	case "posts":
		posts, err := client.Posts()
		exitOnError(err)
		for _, p := range posts {
			fmt.Printf("[%s] %s: %s\n", p.CreatedAt.Format(time.DateTime), p.Title, p.Body)
		}

	case "post", "slowpost":
		if len(os.Args) < 4 {
			fmt.Fprintf(os.Stderr, "Usage: hookcase %s <title> <body>\n", cmd)
			os.Exit(1)
		}
		post, err := client.CreatePost(os.Args[2], os.Args[3], cmd == "slowpost")
		exitOnError(err)
		fmt.Printf("Posted: %s\n", post.ID)

	case "cart":
		resp, err := client.Cart()
		exitOnError(err)
		for _, item := range resp.Items {
			fmt.Printf("  %s\n", item.Title)
		}

	case "add":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: hookcase add <item_id>")
			os.Exit(1)
		}
		state, err := client.CartAction(os.Args[2])
		exitOnError(err)
		fmt.Println(state.Message)

	case "joke":
		joke, err := client.Joke()
		exitOnError(err)
		fmt.Println(joke.Value)

	case "theme":
		var card *hookcase.ThemeCard
		var err error
		if len(os.Args) > 2 && os.Args[2] == "toggle" {
			card, err = client.ToggleTheme()
		} else {
			card, err = client.Theme()
		}
		exitOnError(err)
		fmt.Printf("%s mode - %s\n", card.Mode, card.ButtonLabel)

	case "search":
		term := ""
		if len(os.Args) > 2 {
			term = os.Args[2]
		}
		_, err := client.Search(term)
		exitOnError(err)
		snap, err := client.SearchResults(true)
		exitOnError(err)
		for _, r := range snap.Results {
			fmt.Printf("  %s\n", r)
		}

	case "tab":
		var snap *hookcase.TabsSnapshot
		var err error
		if len(os.Args) > 2 {
			snap, err = client.SelectTab(os.Args[2])
		} else {
			snap, err = client.Tabs()
		}
		exitOnError(err)
		printJSON(map[string]interface{}{
			"active":  snap.Active,
			"pending": snap.Pending,
			"target":  snap.Target,
		})

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`hookcase CLI - hook example server client

Usage: hookcase <command> [options]

Commands:
  examples                 List examples
  snippet <name>           Print an example's source
  send <message> [thread]  Send a message optimistically
  cancel <id> [thread]     Cancel a pending message
  read [thread]            Read a thread
  posts                    List posts
  post <title> <body>      Create a post
  slowpost <title> <body>  Create a post through the slow form
  cart                     Show the cart
  add <item_id>            Add an item to the cart
  joke                     Fetch the cached joke
  theme [toggle]           Show or toggle the theme
  search [term]            Search fruits
  tab [tab1|tab2|tab3]     Show or switch tabs
  stats                    Server statistics
  health                   Check server health

Environment:
  HOOKCASE_URL      Server URL (default: http://localhost:8080)
  HOOKCASE_CONFIG   Config directory (default: ~/.hookcase)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
