package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recent turns of a conversation",
		Long: `Prints the most recent turn records of the selected NPC and session,
oldest first. With the memory backend nothing survives between runs, so
point the config at a sqlite or redis store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags, os.LookupEnv)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := a.manager.Get(flags.npcID)
			if err != nil {
				return err
			}
			recs, err := e.History(cmd.Context(), e.ThreadID(flags.session), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "no turns yet")
				return nil
			}
			name := e.Persona().Name
			for _, rec := range recs {
				fmt.Fprintf(out, "[%s]\n", rec.Timestamp.Local().Format(time.DateTime))
				if rec.InputText != "" {
					fmt.Fprintf(out, "  you: %s\n", rec.InputText)
				}
				for _, ev := range rec.ConsumedEvents {
					fmt.Fprintf(out, "  (%s %s: %s)\n", ev.Source, ev.Kind, ev.Content)
				}
				fmt.Fprintf(out, "  %s: %s\n", name, rec.ReplyText)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of turns to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the records as JSON")
	return cmd
}
