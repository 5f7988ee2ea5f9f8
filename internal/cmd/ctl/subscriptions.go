package ctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tweetcast/internal/domain/types"
)

// NewSubscriptionsCommand constructs the `subscriptions` command group.
func NewSubscriptionsCommand(connect connectFunc) *cobra.Command {
	subsCmd := &cobra.Command{Use: "subscriptions", Aliases: []string{"subs"}, Short: "Subscription operations"}
	subsCmd.AddCommand(
		newSubscriptionsCreateCommand(connect),
		newSubscriptionsListCommand(connect),
		newSubscriptionsGetCommand(connect),
		newSubscriptionsDeleteCommand(connect),
	)
	return subsCmd
}

func newSubscriptionsCreateCommand(connect connectFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("type")
			topics, _ := cmd.Flags().GetStringSlice("topic")
			target, _ := cmd.Flags().GetString("target")

			req := types.SubscriptionRequest{Type: kind, Topics: topics}
			if kind == "email" {
				req.Email = target
			} else {
				req.URL = target
			}
			out, err := connect(cmd).CreateSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	createCmd.Flags().String("type", "", "Channel type: email|discord")
	createCmd.Flags().StringSlice("topic", nil, "Topic to subscribe to (repeatable or comma separated)")
	createCmd.Flags().String("target", "", "Email address or webhook URL")
	_ = createCmd.MarkFlagRequired("type")
	_ = createCmd.MarkFlagRequired("target")
	return createCmd
}

func newSubscriptionsListCommand(connect connectFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			subs, err := connect(cmd).ListSubscriptions(cmd.Context(), topic)
			if err != nil {
				return err
			}
			return printJSON(cmd, subs)
		},
	}
	listCmd.Flags().String("topic", "", "Only subscriptions to this topic")
	return listCmd
}

func newSubscriptionsGetCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := connect(cmd).GetSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, sub)
		},
	}
}

func newSubscriptionsDeleteCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(cmd).DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}
