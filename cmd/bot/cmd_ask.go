// cmd/bot/cmd_ask.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"discord-persona-bot/internal/persona"
	"discord-persona-bot/internal/turn"

	"github.com/spf13/cobra"
)

var askOpts struct {
	userID      int64
	channelID   int64
	username    string
	category    string
	temperature float32
	formality   string
	detail      string
	humor       string
}

// askCmd runs one turn from the terminal against the configured store and
// model, without Discord.
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Run a single chat turn and print the reply fragments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := errors.Join(cfg.Validate(), cfg.ValidateModel()); err != nil {
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

		res := orchestrator.Handle(cmd.Context(), askRequest(args), &writerSink{w: cmd.OutOrStdout()})
		if !res.OK() {
			return res.Failure
		}
		return nil
	},
}

func init() {
	f := askCmd.Flags()
	f.Int64Var(&askOpts.userID, "user-id", 1, "user id the turn is stored under")
	f.Int64Var(&askOpts.channelID, "channel-id", 1, "channel id the turn is stored under")
	f.StringVar(&askOpts.username, "username", "friend", "name substituted into the persona prompt")
	f.StringVar(&askOpts.category, "category", persona.DefaultCategory, "persona category ("+strings.Join(persona.Categories, ", ")+")")
	f.Float32Var(&askOpts.temperature, "temperature", persona.DefaultTemperature, "sampling temperature")
	f.StringVar(&askOpts.formality, "formality", persona.DefaultFormality, "formality level")
	f.StringVar(&askOpts.detail, "detail", persona.DefaultDetail, "detail level")
	f.StringVar(&askOpts.humor, "humor", persona.DefaultHumor, "humor level")
}

func askRequest(args []string) turn.Request {
	return turn.Request{
		UserID:    askOpts.userID,
		ChannelID: askOpts.channelID,
		Username:  askOpts.username,
		Text:      strings.Join(args, " "),
		Persona: persona.Spec{
			Category:    askOpts.category,
			Formality:   askOpts.formality,
			Detail:      askOpts.detail,
			Humor:       askOpts.humor,
			Temperature: askOpts.temperature,
		},
	}
}

// writerSink prints fragments separated by a rule so fragment boundaries
// stay visible.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) Replace(_ context.Context, content string) error {
	_, err := fmt.Fprintln(s.w, content)
	return err
}

func (s *writerSink) Append(_ context.Context, content string) error {
	_, err := fmt.Fprintf(s.w, "-----\n%s\n", content)
	return err
}

func (s *writerSink) Fail(_ context.Context, message string) error {
	_, err := fmt.Fprintln(s.w, message)
	return err
}
