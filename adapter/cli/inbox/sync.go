package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/inboxsync"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/eventbus"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the remote inbox and merge it into the local one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireSync()
		if err != nil {
			return err
		}

		result, err := svc.SyncOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		out := cmd.OutOrStdout()
		switch {
		case !result.Changed:
			fmt.Fprintln(out, "Inbox is up to date.")
		case result.NewCount == 0:
			fmt.Fprintf(out, "Merged %d items, nothing new.\n", len(result.Merged))
		default:
			fmt.Fprintf(out, "%d new item(s):\n", result.NewCount)
			for _, item := range result.NewItems {
				fmt.Fprintf(out, "  %s [%s] %s\n", item.ID, item.Type, item.Text)
			}
		}
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Merge with the remote inbox and write the result back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireSync()
		if err != nil {
			return err
		}

		if err := svc.Push(cmd.Context()); err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed inbox to %s\n", svc.Resource())
		return nil
	},
}

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the remote inbox and report new items until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		svc, err := app.RequireSync()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if app.EventBus != nil {
			unsubscribe := app.EventBus.Subscribe(func(ctx context.Context, msg *eventbus.Message) error {
				var event inboxsync.ItemsReceivedEvent
				if err := msg.Decode(&event); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %d new, %d unread\n",
					event.OccurredAt.Local().Format(time.Kitchen), event.NewCount, len(event.UnreadIDs))
				return nil
			}, inboxsync.RoutingKeyItemsReceived)
			defer unsubscribe()
		}

		fmt.Fprintf(out, "Watching %s every %s\n", svc.Resource(), watchInterval)
		err = svc.Watch(cmd.Context(), watchInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", inboxsync.DefaultPollInterval, "time between polls")
}

func requireSync() (*inboxsync.Service, error) {
	app, err := cli.RequireApp()
	if err != nil {
		return nil, err
	}
	return app.RequireSync()
}
