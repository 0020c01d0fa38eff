package session

import (
	"bufio"
	"io"
	log "log/slog"
	"strings"
)

const Prompt = "Type a message to send or 'Q' to quit: "

// ReadLines scans r in its own goroutine. The channel is closed at EOF.
// Reading from a terminal cannot be interrupted, so consumers select on
// the channel instead of blocking on r.
func ReadLines(r io.Reader) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
		if err := sc.Err(); err != nil {
			log.Warn("Console read failed", "err", err)
		}
	}()

	return out
}

// IsQuit reports whether line is the quit sentinel.
func IsQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "Q")
}
