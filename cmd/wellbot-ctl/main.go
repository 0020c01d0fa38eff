package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"wellbot/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: wellbot-ctl [--socket PATH] start|quit\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := ipc.CmdStart
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}
	if cmd != ipc.CmdStart && cmd != ipc.CmdQuit {
		cli.Usage()
		os.Exit(2)
	}

	if err := ipc.SendCommand(*socket, cmd); err != nil {
		fmt.Println("wellbot not running:", err)
		os.Exit(1)
	}
}
