package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/engine"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

func newSayCmd(flags *globalFlags) *cobra.Command {
	var (
		rawEvents []string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "say [message]",
		Short: "Send one message to an NPC and print the reply",
		Long: `Runs one turn for the selected NPC and session and prints the reply.

Events are written as source:kind:content, or kind:content for events from
the game master, e.g. --event "GM:weather:a storm rolls in".`,
		Example: `  npcgraph say --mock "Good morning!"
  npcgraph say --npc raven --event "weather:fog rolls over the docks" "Seen anything odd?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := make([]turn.Event, 0, len(rawEvents))
			for _, raw := range rawEvents {
				ev, err := parseEvent(raw)
				if err != nil {
					return err
				}
				events = append(events, ev)
			}

			a, err := newApp(cmd.Context(), flags, os.LookupEnv)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.manager.Respond(cmd.Context(), flags.npcID, engine.Input{
				Session: flags.session,
				Text:    strings.Join(args, " "),
				Events:  events,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, res.ReplyText)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&rawEvents, "event", "e", nil, "Event for the NPC to notice (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

// parseEvent reads source:kind:content or kind:content.
func parseEvent(raw string) (turn.Event, error) {
	parts := strings.SplitN(raw, ":", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) == 3 && parts[2] != "":
		return turn.Event{Source: parts[0], Kind: parts[1], Content: parts[2]}, nil
	case len(parts) == 2 && parts[1] != "":
		return turn.Event{Source: "GM", Kind: parts[0], Content: parts[1]}, nil
	default:
		return turn.Event{}, fmt.Errorf("event %q: want source:kind:content or kind:content", raw)
	}
}
