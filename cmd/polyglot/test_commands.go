package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"polyglot/internal/api"
	"polyglot/internal/ipc"
	"polyglot/internal/preflight"
)

func newTestLLMCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-llm",
		Short: "Check that the translation API accepts the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.LLMTestResponse
			if client, err := ipc.Dial(ctx.socketPath()); err == nil {
				defer client.Close()
				remote, err := client.TestLLM()
				if err != nil {
					return err
				}
				resp = *remote
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				result := preflight.CheckLLM(cmd.Context(), cfg)
				resp = api.LLMTestResponse{OK: result.Passed, Message: result.Detail, Model: cfg.LLM.Model}
			}
			if ctx.JSONMode() {
				if err := writeJSON(cmd, resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Model: %s\n%s\n", resp.Model, resp.Message)
			}
			if !resp.OK {
				return errors.New("translation API connection test failed")
			}
			return nil
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					if resp != nil && resp.Message != "" {
						fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					}
					return err
				}
				if resp == nil {
					return errors.New("missing notification response")
				}
				switch {
				case resp.Message != "":
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				case resp.Sent:
					fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return nil
			})
		},
	}
}
