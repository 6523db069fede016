package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"venture/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: venture-ctl [--socket path] <key|type|click|look|move|quit> [args...]")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	err := ipc.Send(*socket, ipc.ControlMessage{Cmd: args[0], Args: args[1:]})
	if err != nil {
		fmt.Println("venture not running or command failed:", err)
		os.Exit(1)
	}
}
