package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	npcID      string
	session    string
	mock       bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "npcgraph",
		Short: "npcgraph runs persona-driven NPC conversations",
		Long: `npcgraph runs each user message through a pipeline of reasoning stages
(perception, mood, context, planning, dialogue, critique, relationship) and
answers in character. Threads are persisted in the configured store.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.npcID, "npc", "lyra", "NPC persona id")
	pf.StringVarP(&flags.session, "session", "s", "default", "Conversation session")
	pf.BoolVar(&flags.mock, "mock", false, "Answer with the offline scripted generator")

	cmd.AddCommand(
		newSayCmd(flags),
		newHistoryCmd(flags),
		newServeCmd(flags),
	)
	return cmd
}
