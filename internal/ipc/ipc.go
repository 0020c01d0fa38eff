package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net"
	"os"
)

const SocketPath = "/tmp/wellbot.sock"

// Commands understood by the control socket.
const (
	CmdStart = "start"
	CmdQuit  = "quit"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

// StartServer listens on a unix socket and calls handler once per
// received command. Closing the returned io.Closer stops the server.
func StartServer(path string, handler func(ControlMessage)) (io.Closer, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Debug("Control accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return ln, nil
}

func handleConn(conn net.Conn, handler func(ControlMessage)) {
	defer conn.Close()

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		return
	}
	handler(msg)
}

func SendCommand(path, cmd string) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	return enc.Encode(ControlMessage{Cmd: cmd})
}
