package ctl

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/tweetcast/internal/client"
	"github.com/okian/tweetcast/internal/domain/model"
)

// NewEventsCommand constructs the `events` command group.
func NewEventsCommand(connect connectFunc) *cobra.Command {
	eventsCmd := &cobra.Command{Use: "events", Short: "Submit classified events"}
	eventsCmd.AddCommand(
		newEventsNotifyCommand(connect),
		newEventsSendCommand(connect),
		newEventsGenerateCommand(connect),
	)
	return eventsCmd
}

func newEventsNotifyCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "notify FILE",
		Short: "Archive and fan out events synchronously (FILE may be -)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(cmd, args[0])
			if err != nil {
				return err
			}
			resp, err := connect(cmd).Notify(cmd.Context(), events)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newEventsSendCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "send FILE",
		Short: "Queue events for asynchronous processing (FILE may be -)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(cmd, args[0])
			if err != nil {
				return err
			}
			resp, err := connect(cmd).Ingest(cmd.Context(), events)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newEventsGenerateCommand(connect connectFunc) *cobra.Command {
	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "Queue synthetic events in concurrent batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, _ := cmd.Flags().GetInt("count")
			topics, _ := cmd.Flags().GetStringSlice("topics")
			batch, _ := cmd.Flags().GetInt("batch")
			workers, _ := cmd.Flags().GetInt("workers")
			if count < 1 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			events := client.Generate(count, topics)
			stats, err := client.Submit(cmd.Context(), connect(cmd), events, client.LoadConfig{
				BatchSize: batch,
				Workers:   workers,
			})
			if perr := printJSON(cmd, stats); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	genCmd.Flags().Int("count", 100, "Number of events")
	genCmd.Flags().StringSlice("topics", []string{"Test"}, "Topics to spread events across")
	genCmd.Flags().Int("batch", 25, "Events per request")
	genCmd.Flags().Int("workers", 4, "Concurrent requests")
	return genCmd
}

// readEvents decodes a batch from path, or from stdin when path is "-".
func readEvents(cmd *cobra.Command, path string) ([]model.ClassifiedEvent, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return model.DecodeEvents(data)
}
