// Package main is an interactive terminal client for the weather agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/weather-chat/internal/agent"
	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/cli"
	"github.com/capitalize-ai/weather-chat/internal/config"
	"github.com/capitalize-ai/weather-chat/internal/export"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
)

var (
	flagEndpoint string
	flagThread   string
	flagLabel    string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "weather-chat",
	Short: "Chat with the weather agent from the terminal",
	Long: `weather-chat streams answers from the weather agent.

Examples:
  weather-chat
  weather-chat --thread my-thread --label "Weather Agent"`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func init() {
	cfg := config.Load()
	rootCmd.Flags().StringVar(&flagEndpoint, "endpoint", cfg.AgentEndpoint, "Agent stream endpoint")
	rootCmd.Flags().StringVar(&flagThread, "thread", cfg.AgentThreadID, "Agent thread id")
	rootCmd.Flags().StringVar(&flagLabel, "label", cfg.AgentLabel, "Label for agent messages")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	log := logger.Nop()
	if flagVerbose {
		dev, err := logger.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		log = dev
	}
	defer log.Sync()

	client, err := agent.NewHTTPClient(agent.Settings{
		Endpoint:    flagEndpoint,
		RunID:       cfg.AgentRunID,
		ResourceID:  cfg.AgentResourceID,
		ThreadID:    flagThread,
		MaxRetries:  cfg.AgentMaxRetries,
		MaxSteps:    cfg.AgentMaxSteps,
		Temperature: cfg.AgentTemperature,
		TopP:        cfg.AgentTopP,
	})
	if err != nil {
		return err
	}

	conv := chat.NewConversation(uuid.Must(uuid.NewV7()).String(), client, chat.WithLogger(log))
	defer conv.Close()

	// Ctrl-C cancels the reply in progress, or exits when idle.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		for range sigs {
			if !conv.Cancel() {
				fmt.Fprintln(cmd.OutOrStdout())
				os.Exit(130)
			}
		}
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Ask about the weather anywhere. /help lists commands.")

	repl := &cli.REPL{
		Conversation: conv,
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
		Export: export.Options{
			Location:   cfg.ExportLocation(),
			AgentLabel: flagLabel,
		},
	}
	return repl.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
