package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anjanaaa29/rag-reader/internal/app"
	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/tui"
)

var askConversation string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "conversation ID to continue (needs redis.enabled to persist across runs)")
	rootCmd.AddCommand(askCmd, chatCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Assistant.Ask(cmd.Context(), assistant.AskRequest{
		Query:          strings.Join(args, " "),
		ConversationID: askConversation,
	})
	if err != nil {
		logger.Debug("ask failed", "error", err)
		return errors.New(assistant.UserMessage(err))
	}
	printAnswer(cmd.OutOrStdout(), resp)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(cmd.Context(), a.Assistant, cfg.App.Name)
}

func printAnswer(out io.Writer, resp *assistant.AskResponse) {
	fmt.Fprintln(out, resp.Answer)

	if len(resp.Citations) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, c := range resp.Citations {
			fmt.Fprintf(out, "  %d. %s\n", i+1, c)
			if i < len(resp.Excerpts) {
				fmt.Fprintf(out, "     %q\n", resp.Excerpts[i])
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Conversation: %s\n", resp.ConversationID)
}
