// internal/bot/sink.go
package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// messageSink delivers a mention-triggered turn: the "Thinking..." message is
// edited with the first fragment, the rest are posted to the channel.
type messageSink struct {
	session       *discordgo.Session
	channelID     string
	placeholderID string
	mention       string
}

func (s *messageSink) Replace(ctx context.Context, content string) error {
	parts := withPreamble(s.mention, content)
	if err := s.edit(ctx, parts[0]); err != nil {
		return err
	}
	for _, p := range parts[1:] {
		if err := s.Append(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *messageSink) Fail(ctx context.Context, message string) error {
	return s.edit(ctx, message)
}

func (s *messageSink) Append(ctx context.Context, content string) error {
	if _, err := s.session.ChannelMessageSend(s.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *messageSink) edit(ctx context.Context, content string) error {
	if _, err := s.session.ChannelMessageEdit(s.channelID, s.placeholderID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit placeholder: %w", err)
	}
	return nil
}

// interactionSink delivers a slash-command turn: the deferred response is
// edited with the first fragment, the rest are posted to the channel.
type interactionSink struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	channelID   string
	mention     string
}

func (s *interactionSink) Replace(ctx context.Context, content string) error {
	parts := withPreamble(s.mention, content)
	if err := s.edit(ctx, parts[0]); err != nil {
		return err
	}
	for _, p := range parts[1:] {
		if err := s.Append(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *interactionSink) Fail(ctx context.Context, message string) error {
	return s.edit(ctx, message)
}

func (s *interactionSink) Append(ctx context.Context, content string) error {
	if _, err := s.session.ChannelMessageSend(s.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *interactionSink) edit(ctx context.Context, content string) error {
	if _, err := s.session.InteractionResponseEdit(s.interaction, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit interaction response: %w", err)
	}
	return nil
}
