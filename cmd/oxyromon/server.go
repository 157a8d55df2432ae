package main

import (
	"fmt"
	"net"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/server"
)

// serverCommand implements `server [-a ADDR|-p PORT]`, wiring onto
// internal/server.NewServer/Run and sharing the same signal-derived
// context every other subcommand uses for cancellation.
var serverCommand = &cli.Command{
	Name:  "server",
	Usage: "serve the catalog's JSON-RPC API (read queries plus settings and system-purge mutations)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "bind address", Value: "127.0.0.1"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "bind port", Value: 8080},
	},
	Action: runServer,
}

func runServer(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.NewServer(store)
	addr := net.JoinHostPort(c.String("address"), fmt.Sprintf("%d", c.Int("port")))

	logf("server: listening on %s", addr)
	return srv.Run(ctx, addr)
}
