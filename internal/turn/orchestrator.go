// internal/turn/orchestrator.go

// Package turn runs one conversational turn: load context, persist the
// prompt, call the model, archive the reply and deliver it in fragments.
package turn

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"discord-persona-bot/internal/ai"
	"discord-persona-bot/internal/models"
	"discord-persona-bot/internal/persona"
)

const defaultContextLimit = 10

type State string

const (
	StateReceived               State = "RECEIVED"
	StateContextLoaded          State = "CONTEXT_LOADED"
	StatePersistedUserTurn      State = "PERSISTED_USER_TURN"
	StateModelCalled            State = "MODEL_CALLED"
	StatePersistedAssistantTurn State = "PERSISTED_ASSISTANT_TURN"
	StateFragmented             State = "FRAGMENTED"
	StateDelivered              State = "DELIVERED"
	StateFailed                 State = "FAILED"
)

type ContextStore interface {
	AppendTurn(ctx context.Context, userID, channelID int64, role models.Role, text string) (models.Turn, error)
	RecentTurns(ctx context.Context, userID, channelID int64, limit int) ([]models.Turn, error)
}

type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

// Sink delivers a turn's output. Replace overwrites the placeholder the user
// is looking at ("Thinking..." or a deferred interaction) with the first
// fragment; Append posts a new message after it. Fail overwrites the
// placeholder with an error message instead of a reply.
type Sink interface {
	Replace(ctx context.Context, content string) error
	Append(ctx context.Context, content string) error
	Fail(ctx context.Context, message string) error
}

type Request struct {
	UserID    int64
	ChannelID int64
	Username  string
	Text      string
	Persona   persona.Spec
}

type Result struct {
	TurnID    string
	State     State
	Fragments []string
	Failure   *Failure
}

// OK reports whether the reply was delivered.
func (r Result) OK() bool {
	return r.State == StateDelivered
}

type Orchestrator struct {
	store         ContextStore
	model         Completer
	logger        *zap.Logger
	contextLimit  int
	strictContext bool
	maxFragment   int
}

type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithContextLimit sets how many prior turns are sent to the model.
func WithContextLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.contextLimit = n
		}
	}
}

// WithStrictContext makes a failed context read fail the turn instead of
// continuing without history.
func WithStrictContext(strict bool) Option {
	return func(o *Orchestrator) { o.strictContext = strict }
}

func WithMaxFragment(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFragment = n
		}
	}
}

func NewOrchestrator(store ContextStore, model Completer, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("turn: context store must not be nil")
	}
	if model == nil {
		return nil, errors.New("turn: completer must not be nil")
	}
	o := &Orchestrator{
		store:        store,
		model:        model,
		logger:       zap.NewNop(),
		contextLimit: defaultContextLimit,
		maxFragment:  DefaultMaxFragment,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Handle runs the turn and delivers its outcome to sink: either every
// fragment of the reply, or a single error message. The turn is not
// cancelled by ctx once started.
func (o *Orchestrator) Handle(ctx context.Context, req Request, sink Sink) Result {
	ctx = context.WithoutCancel(ctx)
	res := o.Run(ctx, req)
	log := o.logger.With(zap.String("turn_id", res.TurnID))

	if res.Failure != nil {
		if err := sink.Fail(ctx, res.Failure.UserMessage()); err != nil {
			log.Error("failed to deliver error message", zap.Error(err))
		}
		return res
	}

	if err := deliver(ctx, sink, res.Fragments); err != nil {
		log.Error("failed to deliver reply", zap.Error(err), zap.Int("fragments", len(res.Fragments)))
		res.State = StateFailed
		res.Failure = &Failure{Reason: ReasonDeliveryFailed, Err: err}
		return res
	}
	res.State = StateDelivered
	log.Info("turn delivered", zap.Int("fragments", len(res.Fragments)))
	return res
}

// Run executes the turn up to FRAGMENTED without delivering anything.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	res := Result{TurnID: uuid.NewString(), State: StateReceived}
	log := o.logger.With(
		zap.String("turn_id", res.TurnID),
		zap.Int64("user_id", req.UserID),
		zap.Int64("channel_id", req.ChannelID),
		zap.String("category", req.Persona.Category),
	)
	fail := func(reason Reason, err error) Result {
		res.State = StateFailed
		res.Failure = &Failure{Reason: reason, Err: err}
		log.Error("turn failed", zap.String("reason", string(reason)), zap.Error(err))
		return res
	}

	recent, err := o.store.RecentTurns(ctx, req.UserID, req.ChannelID, o.contextLimit)
	if err != nil {
		if o.strictContext {
			return fail(ReasonContextUnavailable, err)
		}
		log.Warn("context unavailable, continuing without history", zap.Error(err))
		recent = nil
	}
	res.State = StateContextLoaded

	text := stripNUL(req.Text)
	if _, err := o.store.AppendTurn(ctx, req.UserID, req.ChannelID, models.RoleUser, text); err != nil {
		return fail(ReasonPersistUserTurn, err)
	}
	res.State = StatePersistedUserTurn

	reply, err := o.model.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: req.Persona.SystemPrompt(req.Username),
		History:      history(recent),
		UserText:     text,
		Temperature:  req.Persona.Temperature,
	})
	if err != nil {
		return fail(ReasonCompletionFailed, err)
	}
	res.State = StateModelCalled

	if _, err := o.store.AppendTurn(ctx, req.UserID, req.ChannelID, models.RoleAssistant, stripNUL(reply)); err != nil {
		log.Warn("failed to archive assistant turn", zap.Error(err))
	}
	res.State = StatePersistedAssistantTurn

	res.Fragments = Split(reply, o.maxFragment)
	res.State = StateFragmented
	log.Debug("turn fragmented", zap.Int("history", len(recent)), zap.Int("reply_len", len(reply)))
	return res
}

func deliver(ctx context.Context, sink Sink, fragments []string) error {
	if err := sink.Replace(ctx, fragments[0]); err != nil {
		return err
	}
	for _, f := range fragments[1:] {
		if err := sink.Append(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// history turns a newest-first slice of stored turns into chronological
// chat messages.
func history(recent []models.Turn) []ai.Message {
	turns := slices.Clone(recent)
	slices.Reverse(turns)

	msgs := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: t.Text})
	}
	return msgs
}

func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
