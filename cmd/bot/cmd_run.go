// cmd/bot/cmd_run.go
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"discord-persona-bot/internal/ai"
	"discord-persona-bot/internal/bot"
	"discord-persona-bot/internal/database"
	"discord-persona-bot/internal/turn"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve /chat and mentions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := errors.Join(cfg.Validate(), cfg.ValidateModel(), cfg.ValidateDiscord()); err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		orchestrator, err := newOrchestrator(db)
		if err != nil {
			return err
		}
		botHandler := bot.NewBotHandler(orchestrator, cfg.AllowedChannelID, logger.Named("bot"))

		// Create Discord session
		discord, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("error creating Discord session: %w", err)
		}
		botHandler.SetSession(discord)

		discord.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentsMessageContent

		if err := discord.Open(); err != nil {
			return fmt.Errorf("error opening Discord connection: %w", err)
		}
		defer discord.Close()

		logger.Info("bot is running", zap.Int64("allowed_channel_id", cfg.AllowedChannelID))

		// Wait for interrupt signal
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		logger.Info("shutting down")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the chat_history table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database migrated", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

func openDatabase() (*database.DB, error) {
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func newOrchestrator(db *database.DB) (*turn.Orchestrator, error) {
	aiService := ai.NewAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxOutputTokens,
		ai.WithBaseURL(cfg.OpenAI.BaseURL),
		ai.WithLogger(logger.Named("ai")),
	)
	return turn.NewOrchestrator(db, aiService,
		turn.WithLogger(logger.Named("turn")),
		turn.WithContextLimit(cfg.ContextLimit),
		turn.WithStrictContext(cfg.StrictContext),
	)
}
