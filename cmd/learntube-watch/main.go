// learntube-watch submits a topic to a running learntube server and follows
// the render in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8000", "learntube server base URL")
	topic := flag.String("topic", "", "topic to generate a video for")
	id := flag.String("id", "", "watch an existing video id instead of submitting")
	out := flag.String("out", "", "download the finished video to this path")
	flag.Parse()

	if *topic == "" && flag.NArg() > 0 {
		*topic = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(*topic) == "" && *id == "" {
		fmt.Fprintln(os.Stderr, "usage: learntube-watch [-server URL] [-out file.mp4] (-topic TOPIC | -id VIDEO_ID)")
		os.Exit(2)
	}

	model := newWatchModel(newAPIClient(*serverURL), strings.TrimSpace(*topic), *id, *out)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	if m, ok := final.(watchModel); ok {
		if m.err != nil || m.status.Status == "failed" {
			os.Exit(1)
		}
	}
}
