// internal/bot/handler.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"discord-persona-bot/internal/persona"
	"discord-persona-bot/internal/turn"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	placeholderText    = "Thinking..."
	unknownCommandText = "Sorry, I don't recognize that command."
	emptyPromptText    = "Hi! How can I help you?"
	unknownUserText    = "Sorry, I couldn't tell who sent this."

	commandPrefix = "!"
)

var errEmptyPrompt = errors.New("empty prompt")

// messageAction is what OnMessageCreate does with an incoming message.
type messageAction int

const (
	actionIgnore messageAction = iota
	actionUnknownCommand
	actionTurn
)

type TurnHandler interface {
	Handle(ctx context.Context, req turn.Request, sink turn.Sink) turn.Result
}

type BotHandler struct {
	turns            TurnHandler
	logger           *zap.Logger
	session          *discordgo.Session
	botID            string
	allowedChannelID int64
}

func NewBotHandler(turns TurnHandler, allowedChannelID int64, logger *zap.Logger) *BotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotHandler{
		turns:            turns,
		logger:           logger,
		allowedChannelID: allowedChannelID,
	}
}

func (h *BotHandler) SetSession(s *discordgo.Session) {
	h.session = s
	user, err := s.User("@me")
	if err != nil {
		h.logger.Error("error getting bot user", zap.Error(err))
	} else {
		h.botID = user.ID
	}

	s.AddHandler(h.onReady)
	s.AddHandler(h.OnMessageCreate)
	s.AddHandler(h.handleInteraction)
}

func (h *BotHandler) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("logged in", zap.String("user", r.User.Username))

	synced, err := h.RegisterCommands()
	if err != nil {
		h.logger.Error("failed to sync commands", zap.Error(err))
		return
	}
	h.logger.Info("synced commands", zap.Int("count", synced))
}

// RegisterCommands registers the slash commands globally.
func (h *BotHandler) RegisterCommands() (int, error) {
	created, err := h.session.ApplicationCommandBulkOverwrite(h.botID, "", []*discordgo.ApplicationCommand{chatCommand()})
	if err != nil {
		return 0, fmt.Errorf("error overwriting commands: %w", err)
	}
	return len(created), nil
}

func chatCommand() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(persona.Categories))
	for _, c := range persona.Categories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
	}

	return &discordgo.ApplicationCommand{
		Name:        "chat",
		Description: "Start a chat with the AI",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prompt",
				Description: "The prompt for the AI to respond to",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "category",
				Description: "Choose the category for the response style",
				Choices:     choices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "temperature",
				Description: "Temperature for the AI response (0.0 - 1.0)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "formality",
				Description: "Choose the formality level",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "detail",
				Description: "Choose the detail level",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "humor",
				Description: "Choose the humor level",
			},
		},
	}
}

// allowed reports whether the bot may act in channelID.
func (h *BotHandler) allowed(channelID string) bool {
	if h.allowedChannelID == 0 {
		return true
	}
	return channelID == strconv.FormatInt(h.allowedChannelID, 10)
}

func (h *BotHandler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || !h.allowed(i.ChannelID) {
		return
	}

	// Only /chat is registered; anything else is a stale registration.
	if i.ApplicationCommandData().Name == "chat" {
		h.handleChatInteraction(s, i)
	}
}

func (h *BotHandler) handleChatInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Acknowledge the interaction immediately
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		h.logger.Error("error responding to interaction", zap.Error(err))
		return
	}

	user := interactionUser(i)
	if user == nil {
		h.logger.Warn("interaction without a user", zap.String("interaction_id", i.ID))
		_ = (&interactionSink{session: s, interaction: i.Interaction, channelID: i.ChannelID}).Fail(context.Background(), unknownUserText)
		return
	}
	sink := &interactionSink{session: s, interaction: i.Interaction, channelID: i.ChannelID, mention: user.Mention()}

	req, err := chatRequest(user, i.ChannelID, i.ApplicationCommandData().Options)
	if err != nil {
		h.logger.Warn("invalid chat interaction", zap.Error(err))
		_ = sink.Fail(context.Background(), emptyPromptText)
		return
	}

	h.turns.Handle(context.Background(), req, sink)
}

func (h *BotHandler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	switch h.messageAction(m) {
	case actionUnknownCommand:
		if _, err := s.ChannelMessageSend(m.ChannelID, unknownCommandText); err != nil {
			h.logger.Error("error sending unknown command reply", zap.Error(err))
		}
		return
	case actionIgnore:
		return
	}

	// Send a loading message in the channel
	loading, err := s.ChannelMessageSend(m.ChannelID, placeholderText)
	if err != nil {
		h.logger.Error("error sending placeholder", zap.Error(err))
		return
	}
	sink := &messageSink{session: s, channelID: m.ChannelID, placeholderID: loading.ID, mention: m.Author.Mention()}

	req, err := mentionRequest(m, h.botID)
	switch {
	case errors.Is(err, errEmptyPrompt):
		_ = sink.Fail(context.Background(), emptyPromptText)
		return
	case err != nil:
		h.logger.Error("invalid snowflake", zap.Error(err))
		_ = sink.Fail(context.Background(), unknownUserText)
		return
	}

	h.turns.Handle(context.Background(), req, sink)
}

// messageAction decides how to treat m. Bot authors, other channels and
// messages that neither mention the bot nor look like a command are ignored.
func (h *BotHandler) messageAction(m *discordgo.MessageCreate) messageAction {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.botID {
		return actionIgnore
	}
	if !h.allowed(m.ChannelID) {
		return actionIgnore
	}
	if strings.HasPrefix(m.Content, commandPrefix) {
		return actionUnknownCommand
	}
	if !mentions(m.Message, h.botID) {
		return actionIgnore
	}
	return actionTurn
}

// mentionRequest builds the turn for a message addressed to the bot. Mentions
// always use the default persona with no tone sentence.
func mentionRequest(m *discordgo.MessageCreate, botID string) (turn.Request, error) {
	query := stripMention(m.Content, botID)
	if query == "" {
		return turn.Request{}, errEmptyPrompt
	}

	userID, channelID, err := parseIDs(m.Author.ID, m.ChannelID)
	if err != nil {
		return turn.Request{}, err
	}

	return turn.Request{
		UserID:    userID,
		ChannelID: channelID,
		Username:  m.Author.Username,
		Text:      query,
		Persona:   persona.Spec{Category: persona.DefaultCategory, Temperature: persona.DefaultTemperature},
	}, nil
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// chatRequest maps the /chat options onto a turn request, applying the
// persona defaults for options the user left out.
func chatRequest(user *discordgo.User, channelID string, options []*discordgo.ApplicationCommandInteractionDataOption) (turn.Request, error) {
	userID, chID, err := parseIDs(user.ID, channelID)
	if err != nil {
		return turn.Request{}, err
	}

	req := turn.Request{
		UserID:    userID,
		ChannelID: chID,
		Username:  user.Username,
		Persona:   persona.Spec{Temperature: persona.DefaultTemperature},
	}
	for _, opt := range options {
		switch opt.Name {
		case "prompt":
			req.Text = strings.TrimSpace(opt.StringValue())
		case "category":
			req.Persona.Category = opt.StringValue()
		case "temperature":
			req.Persona.Temperature = float32(opt.FloatValue())
		case "formality":
			req.Persona.Formality = opt.StringValue()
		case "detail":
			req.Persona.Detail = opt.StringValue()
		case "humor":
			req.Persona.Humor = opt.StringValue()
		}
	}
	if req.Text == "" {
		return turn.Request{}, errEmptyPrompt
	}
	req.Persona = req.Persona.WithDefaults()
	return req, nil
}

func parseIDs(userID, channelID string) (int64, int64, error) {
	u, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("user id %q: %w", userID, err)
	}
	c, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("channel id %q: %w", channelID, err)
	}
	return u, c, nil
}

func mentions(m *discordgo.Message, botID string) bool {
	if botID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u.ID == botID {
			return true
		}
	}
	return strings.Contains(m.Content, "<@"+botID+">") || strings.Contains(m.Content, "<@!"+botID+">")
}

func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

// withPreamble prefixes the first fragment with the user mention. It returns
// the preamble as its own message when the combination would exceed the
// platform limit.
func withPreamble(mention, fragment string) []string {
	preamble := mention + ", here's what I found:\n\n"
	if utf8.RuneCountInString(preamble)+utf8.RuneCountInString(fragment) <= turn.DefaultMaxFragment {
		return []string{preamble + fragment}
	}
	return []string{strings.TrimRight(preamble, "\n"), fragment}
}
