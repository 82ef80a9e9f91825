package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/npcgraph/internal/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP API",
		Long: `Serves every configured NPC over HTTP:

  POST /threads/{npc}/{session}/turns    run a turn
  GET  /threads/{npc}/{session}/history  recent turn records
  POST /threads/{npc}/{session}/events   queue events for the next turn
  GET  /npcs, /health, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags, os.LookupEnv)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.settings.HTTP.Addr
			}
			return server.New(a.manager, server.WithLogger(a.logger)).Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (defaults to http.addr from config)")
	return cmd
}
