package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polyglot/internal/api"
	"polyglot/internal/content"
)

const translationPollInterval = 2 * time.Second

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var targetLang string
	var sourceLang string
	var wait bool
	var waitTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "translate <post-id>",
		Short: "Queue a post for translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(targetLang) == "" {
				return errors.New("--to is required")
			}
			source := strings.TrimSpace(sourceLang)
			if source == "" {
				source, err = postLanguage(cmd.Context(), ctx, postID)
				if err != nil {
					return err
				}
			}

			return ctx.withBackend(cmd, nil, func(backend translationBackend) error {
				resp, err := backend.Enqueue(cmd.Context(), api.EnqueueRequest{
					PostID:     postID,
					SourceLang: source,
					TargetLang: targetLang,
				})
				if err != nil {
					return err
				}
				if !wait {
					if ctx.JSONMode() {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s (queue id %d)\n", resp.Message, resp.QueueID)
					return nil
				}
				if !ctx.JSONMode() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (queue id %d)\n", resp.Message, resp.QueueID)
				}
				view, err := pollTranslation(cmd.Context(), backend, resp.QueueID, waitTimeout, translationPollInterval)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				printTranslationStatus(cmd.OutOrStdout(), view)
				if view.Status == "failed" {
					return fmt.Errorf("translation %d failed", view.QueueID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&targetLang, "to", "t", "", "Target language code (e.g. fr, pt-BR)")
	cmd.Flags().StringVarP(&sourceLang, "from", "f", "", "Source language code (defaults to the post's language)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the translation completes or fails")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 10*time.Minute, "Maximum time to wait with --wait")
	return cmd
}

func newTranslationStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translation-status <queue-id>",
		Short: "Show the status of a queued translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, nil, func(backend translationBackend) error {
				view, err := backend.TranslationStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				printTranslationStatus(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one batch of pending translations",
		Long: "Process one batch of pending translations.\n\n" +
			"Runs inside the daemon when it is reachable, otherwise in this process. " +
			"Suitable for cron: overlapping runs skip while another holder owns the queue lease.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.cliLogger(cmd, quiet)
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, logger, func(backend translationBackend) error {
				resp, err := backend.Process(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				if quiet {
					return nil
				}
				printProcessSummary(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress summary output and informational logs")
	return cmd
}

func pollTranslation(ctx context.Context, backend translationBackend, id int64, timeout, interval time.Duration) (api.TranslationStatus, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		view, err := backend.TranslationStatus(ctx, id)
		if err != nil {
			return api.TranslationStatus{}, err
		}
		if view.Terminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return view, fmt.Errorf("translation %d still %s after %s", id, view.Status, timeout)
			}
			return view, ctx.Err()
		case <-ticker.C:
		}
	}
}

func postLanguage(ctx context.Context, cmdCtx *commandContext, postID int64) (string, error) {
	var lang string
	err := cmdCtx.withContent(func(store *content.Store) error {
		value, err := store.PostLanguage(ctx, postID)
		if err != nil {
			return err
		}
		lang = strings.TrimSpace(value)
		return nil
	})
	if err != nil {
		return "", err
	}
	if lang == "" {
		return "", fmt.Errorf("post %d has no language; pass --from", postID)
	}
	return lang, nil
}

func printTranslationStatus(out io.Writer, view api.TranslationStatus) {
	fmt.Fprintf(out, "Queue ID: %d\n", view.QueueID)
	fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(view.Status))
	if view.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", view.Message)
	}
	switch {
	case view.SameItemUpdated:
		fmt.Fprintln(out, "Result: source post updated in place")
	case view.TranslatedItemRef > 0:
		fmt.Fprintf(out, "Result: translated post %d\n", view.TranslatedItemRef)
	}
}

func printProcessSummary(out io.Writer, resp api.ProcessResponse) {
	summary := resp.Summary
	if summary.LockHeld {
		holder := "another process"
		if resp.Holder != nil && resp.Holder.Owner != "" {
			holder = resp.Holder.Owner
		}
		fmt.Fprintf(out, "Queue is locked by %s; skipped\n", holder)
		return
	}
	if summary.Processed == 0 {
		fmt.Fprintln(out, "No pending translations")
		return
	}
	fmt.Fprintf(out, "Processed %d (completed %d, failed %d) in %s\n",
		summary.Processed,
		summary.Completed,
		summary.Failed,
		time.Duration(summary.DurationMS*float64(time.Millisecond)).Round(time.Millisecond),
	)
	if summary.Aborted {
		fmt.Fprintln(out, "Batch aborted before completion")
	}
}

func parsePositiveID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parsePositiveID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
