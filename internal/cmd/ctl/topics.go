package ctl

import (
	"github.com/spf13/cobra"

	"github.com/okian/tweetcast/internal/config"
	"github.com/okian/tweetcast/internal/domain/model"
)

// NewTopicsCommand constructs the `topics` command group.
func NewTopicsCommand(connect connectFunc) *cobra.Command {
	topicsCmd := &cobra.Command{Use: "topics", Short: "Topic operations"}
	topicsCmd.AddCommand(
		newTopicsInitCommand(connect),
		newTopicsListCommand(connect),
	)
	return topicsCmd
}

// newTopicsInitCommand creates the named topics, or the configured bootstrap
// topics when none are given.
func newTopicsInitCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "init [name...]",
		Short: "Create topics (defaults to the configured bootstrap topics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				cfg, err := config.Load(cmd.Context())
				if err != nil {
					return err
				}
				names = cfg.BootstrapTopics
			}

			c := connect(cmd)
			created := make([]model.Topic, 0, len(names))
			for _, name := range names {
				t, err := c.CreateTopic(cmd.Context(), name)
				if err != nil {
					return err
				}
				created = append(created, t)
			}
			return printJSON(cmd, created)
		},
	}
}

func newTopicsListCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topics, err := connect(cmd).ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, topics)
		},
	}
}
