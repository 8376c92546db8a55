package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polyglot/internal/api"
	"polyglot/internal/ipc"
	"polyglot/internal/queue"
	"polyglot/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the translation queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				stats, err := session.Access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.QueueStatsResponse{Counts: stats})
				}
				out := cmd.OutOrStdout()
				if rows := buildQueueStatusRows(stats); len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
				} else {
					fmt.Fprint(out, renderTable(queueStatusColumns, rows))
				}
				if session.Offline {
					fmt.Fprintln(out, "Daemon not running; counts read from the queue database")
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var postID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postID < 0 {
				return fmt.Errorf("invalid post id %d", postID)
			}
			for _, status := range listStatuses {
				if _, ok := queue.ParseStatus(status); !ok {
					return fmt.Errorf("unknown queue status %q", status)
				}
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), queueaccess.Filter{Statuses: listStatuses, PostID: postID})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.QueueListResponse{Items: api.SortQueueItemsNewestFirst(items)})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(queueListColumns, buildQueueListRows(items, time.Now())))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().Int64Var(&postID, "post", 0, "Only list jobs for this post ID")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <queue-id>",
		Short: "Show one queue item including prompt and response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", id)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				printQueueItem(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items (items being processed are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				scope, label := queueaccess.ClearAll, "queue items"
				switch {
				case clearCompleted:
					scope, label = queueaccess.ClearCompleted, "completed items"
				case clearFailed:
					scope, label = queueaccess.ClearFailed, "failed items"
				}
				removed, err := access.Clear(cmd.Context(), scope)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.ClearResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <queue-id>...",
		Short: "Remove specific queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				removed, err := access.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.ClearResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d items\n", removed, len(ids))
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := databaseHealth(cmd, ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			printDatabaseHealth(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func databaseHealth(cmd *cobra.Command, ctx *commandContext) (*ipc.DatabaseHealthResponse, error) {
	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		return client.DatabaseHealth()
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	health, err := store.CheckHealth(cmd.Context())
	if err != nil && health.Error == "" {
		return nil, err
	}
	return &ipc.DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		MissingColumns:   health.MissingColumns,
		IntegrityCheck:   health.IntegrityCheck,
		TotalItems:       health.TotalItems,
		Error:            health.Error,
	}, nil
}

func printDatabaseHealth(out io.Writer, resp *ipc.DatabaseHealthResponse) {
	fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
	fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
	fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
	fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(resp.TableExists))
	if len(resp.MissingColumns) > 0 {
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(resp.MissingColumns, ", "))
	} else {
		fmt.Fprintln(out, "Missing columns: none")
	}
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
	fmt.Fprintf(out, "Total items: %d\n", resp.TotalItems)
	if resp.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", resp.Error)
	}
}

func printQueueItem(out io.Writer, item api.QueueItem) {
	fmt.Fprintf(out, "ID: %d\n", item.ID)
	fmt.Fprintf(out, "Post: %d\n", item.PostID)
	fmt.Fprintf(out, "Languages: %s\n", formatLanguagePair(item.SourceLang, item.TargetLang))
	fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(item.Status))
	fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(item.CreatedAt))
	if item.ProcessedAt != "" {
		fmt.Fprintf(out, "Processed: %s\n", formatDisplayTime(item.ProcessedAt))
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", item.ErrorMessage)
	}
	if item.Prompt != "" {
		fmt.Fprintf(out, "\nPrompt:\n%s\n", item.Prompt)
	}
	if item.Response != "" {
		fmt.Fprintf(out, "\nResponse:\n%s\n", item.Response)
	}
}
