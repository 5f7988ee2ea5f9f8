// Package ctl provides the `tweetcastctl` command-line client.
//
// The CLI talks to a running tweetcast server over its HTTP API. The base
// URL comes from the embedding binary through a BaseURLFunc and can be
// overridden per invocation with --server.
//
// Usage
//
//	tweetcastctl topics init                 # configured bootstrap topics
//	tweetcastctl topics init Crypto Parrots
//	tweetcastctl topics list
//
//	tweetcastctl subscriptions create --type discord --topic Crypto --target https://discord.com/api/webhooks/...
//	tweetcastctl subscriptions list --topic Crypto
//	tweetcastctl subscriptions get ID
//	tweetcastctl subscriptions delete ID
//
//	tweetcastctl events notify tweets.json   # synchronous, "-" reads stdin
//	tweetcastctl events send tweets.json     # queued
//	tweetcastctl events generate --count 1000 --topics Crypto,Test --batch 50 --workers 8
//
//	tweetcastctl stats
package ctl

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/tweetcast/internal/client"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

const requestTimeout = 30 * time.Second

// NewRoot constructs the root command and registers the command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "tweetcastctl",
		Short:         "tweetcast client commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", "", "Server base URL (overrides TWEETCAST_SERVER)")

	connect := func(cmd *cobra.Command) *client.Client {
		url, _ := cmd.Flags().GetString("server")
		if url == "" {
			url = baseURL()
		}
		return client.New(url, client.WithTimeout(requestTimeout))
	}

	root.AddCommand(
		NewTopicsCommand(connect),
		NewSubscriptionsCommand(connect),
		NewEventsCommand(connect),
		newStatsCommand(connect),
	)
	return root
}

// connectFunc builds an API client for the invoking command.
type connectFunc func(cmd *cobra.Command) *client.Client

func newStatsCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server runtime counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := connect(cmd).Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
