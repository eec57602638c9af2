package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tecmax-dev/sisvida-sub005/internal/appointments"
	"github.com/tecmax-dev/sisvida-sub005/internal/patients"
	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

var agentTracer = otel.Tracer("sisvida.internal.conversation")

const (
	defaultMaxToolRounds = 5
	defaultLLMTimeout    = 30 * time.Second

	msgRateLimited = "Estamos com muitos atendimentos no momento. Tente novamente em instantes, por favor."
	msgTimeout     = "Desculpe, não consegui processar sua mensagem a tempo. Pode repetir, por favor?"
	msgUnavailable = "Desculpe, o assistente está indisponível no momento. Tente novamente mais tarde."
)

// BookingService is the scheduling surface the tools call into;
// *appointments.Service implements it.
type BookingService interface {
	ListProfessionals(ctx context.Context, clinicID uuid.UUID, specialty string) ([]professionals.Professional, error)
	OpenDates(ctx context.Context, clinicID uuid.UUID, professionalName string, now time.Time) (*professionals.Professional, []schedule.DateAvailability, error)
	OpenTimes(ctx context.Context, clinicID uuid.UUID, professionalName string, date, now time.Time) (*professionals.Professional, []schedule.TimeOfDay, error)
	Book(ctx context.Context, clinicID, memberID uuid.UUID, professionalName string, date time.Time, start schedule.TimeOfDay) (*appointments.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
	UpcomingForMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]appointments.Appointment, error)
	Horizon() int
}

// MemberFinder resolves patients by CPF; *patients.Repository implements it.
type MemberFinder interface {
	FindByCPF(ctx context.Context, clinicID uuid.UUID, cpf string) (*patients.Member, error)
}

// Request is one inbound assistant message. History carries the transcript
// when the caller manages it; when it is empty and Phone is set, the cached
// transcript for that phone is used instead.
type Request struct {
	Message  string                         `json:"message"`
	ClinicID uuid.UUID                      `json:"clinic_id"`
	Phone    string                         `json:"phone,omitempty"`
	History  []openai.ChatCompletionMessage `json:"conversation_history,omitempty"`
}

// Response is the assistant's answer plus the structured outcomes of the
// turn: whether a human handoff was requested and which mutation, if any,
// the tools performed. Reply is null whenever HandoffToBooking is true; the
// caller owns the conversation from there and must switch to the booking
// flow instead of relaying text.
type Response struct {
	Reply            *string `json:"response"`
	HandoffToBooking bool    `json:"handoff_to_booking,omitempty"`
	Action           string  `json:"action,omitempty"`
	ToolCallsMade    int     `json:"tool_calls_made,omitempty"`
}

// Agent runs the bounded tool-calling loop against the configured chat
// client. Tools execute sequentially in the order the model requested them;
// the loop ends when the model answers with plain text or the round cap hits.
type Agent struct {
	client        ChatClient
	booking       BookingService
	members       MemberFinder
	history       *HistoryStore
	model         string
	maxToolRounds int
	llmTimeout    time.Duration
	logger        *logging.Logger
	metrics       *Metrics
	now           func() time.Time
}

// AgentOptions configures the loop; zero values fall back to defaults.
type AgentOptions struct {
	Model         string
	MaxToolRounds int
	LLMTimeout    time.Duration
	Now           func() time.Time
}

// NewAgent builds the orchestrator. history may be nil when no transcript
// cache is wanted.
func NewAgent(client ChatClient, booking BookingService, members MemberFinder, history *HistoryStore, opts AgentOptions, logger *logging.Logger, metrics *Metrics) *Agent {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if booking == nil {
		panic("conversation: booking service cannot be nil")
	}
	if members == nil {
		panic("conversation: member finder cannot be nil")
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = defaultMaxToolRounds
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = defaultLLMTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{
		client:        client,
		booking:       booking,
		members:       members,
		history:       history,
		model:         opts.Model,
		maxToolRounds: opts.MaxToolRounds,
		llmTimeout:    opts.LLMTimeout,
		logger:        logger,
		metrics:       metrics,
		now:           opts.Now,
	}
}

// Process runs one assistant turn. Provider failures degrade to polite
// user-facing replies rather than errors; only invalid input and
// infrastructure faults reach the error return.
func (a *Agent) Process(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("conversation: message required")
	}
	if req.ClinicID == uuid.Nil {
		return nil, errors.New("conversation: clinic_id required")
	}

	ctx, span := agentTracer.Start(ctx, "conversation.process")
	defer span.End()
	span.SetAttributes(attribute.String("sisvida.clinic_id", req.ClinicID.String()))

	now := a.now()
	sess := &session{clinicID: req.ClinicID, now: now}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(now)},
	}
	messages = append(messages, a.priorMessages(ctx, req)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	tools := toolDefinitions()
	toolCallsMade := 0

	for round := 0; round <= a.maxToolRounds; round++ {
		resp, err := a.complete(ctx, messages, tools)
		if err != nil {
			span.RecordError(err)
			return a.degrade(ctx, req, messages, sess, toolCallsMade, err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("conversation: provider returned no choices")
		}

		choice := resp.Choices[0].Message
		messages = append(messages, choice)

		if len(choice.ToolCalls) == 0 {
			reply := strings.TrimSpace(choice.Content)
			a.saveTranscript(ctx, req, messages)
			return &Response{
				Reply:            &reply,
				HandoffToBooking: sess.handoff,
				Action:           sess.action,
				ToolCallsMade:    toolCallsMade,
			}, nil
		}

		if round == a.maxToolRounds {
			// The model still wants tools but the budget is spent. Drop the
			// unanswered tool-call request so the cached transcript replays
			// cleanly on the next turn.
			messages = messages[:len(messages)-1]
			break
		}

		for _, call := range choice.ToolCalls {
			toolCallsMade++
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    a.executeTool(ctx, sess, call),
			})
		}

		if sess.handoff {
			// The handoff tool ends the assistant's part of the conversation;
			// the reply stays null and the caller switches to the booking flow.
			a.saveTranscript(ctx, req, messages)
			return &Response{
				HandoffToBooking: true,
				Action:           sess.action,
				ToolCallsMade:    toolCallsMade,
			}, nil
		}
	}

	a.logger.Warn("tool round cap reached", "clinic_id", req.ClinicID, "tool_calls", toolCallsMade)
	a.saveTranscript(ctx, req, messages)
	return &Response{
		HandoffToBooking: true,
		Action:           sess.action,
		ToolCallsMade:    toolCallsMade,
	}, nil
}

func (a *Agent) complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionResponse, error) {
	ctx, span := agentTracer.Start(ctx, "conversation.completion")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	started := time.Now()
	resp, err := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    tools,
	})
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	a.metrics.ObserveCompletion(status, time.Since(started).Seconds())
	return resp, err
}

// executeTool runs one requested tool and serializes its envelope. Domain
// rejections come back as failure envelopes; infrastructure errors are
// reported to the model the same way so the loop stays alive.
func (a *Agent) executeTool(ctx context.Context, sess *session, call openai.ToolCall) string {
	ctx, span := agentTracer.Start(ctx, "conversation.tool")
	defer span.End()
	span.SetAttributes(attribute.String("sisvida.tool", call.Function.Name))

	result, err := a.runTool(ctx, sess, call.Function.Name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		span.RecordError(err)
		a.logger.Error("tool execution failed",
			"tool", call.Function.Name,
			"error", err,
		)
		a.metrics.ObserveToolCall(call.Function.Name, "error")
		result = fail("internal error while handling the request; apologize and offer to transfer to the booking team")
	} else {
		status := "rejected"
		if success, _ := result["success"].(bool); success {
			status = "ok"
		}
		a.metrics.ObserveToolCall(call.Function.Name, status)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return `{"success":false,"message":"internal error"}`
	}
	return string(data)
}

// degrade maps provider failures onto user-facing replies. The transcript is
// still saved so the turn can be retried with context intact.
func (a *Agent) degrade(ctx context.Context, req Request, messages []openai.ChatCompletionMessage, sess *session, toolCallsMade int, err error) (*Response, error) {
	var reply string
	switch {
	case IsRateLimited(err):
		reply = msgRateLimited
	case IsTimeout(err):
		reply = msgTimeout
	default:
		reply = msgUnavailable
	}
	a.logger.Error("completion failed", "clinic_id", req.ClinicID, "error", err)
	a.saveTranscript(ctx, req, messages)
	return &Response{
		Reply:            &reply,
		HandoffToBooking: sess.handoff,
		Action:           sess.action,
		ToolCallsMade:    toolCallsMade,
	}, nil
}

// priorMessages picks the transcript for this turn: the caller-supplied
// history wins; otherwise the cached transcript for the phone, if any.
func (a *Agent) priorMessages(ctx context.Context, req Request) []openai.ChatCompletionMessage {
	if len(req.History) > 0 {
		return req.History
	}
	if a.history == nil || req.Phone == "" {
		return nil
	}
	cached, err := a.history.Load(ctx, req.ClinicID, req.Phone)
	if err != nil {
		if !errors.Is(err, ErrNoTranscript) {
			a.logger.Error("failed to load transcript", "error", err)
		}
		return nil
	}
	return cached
}

// saveTranscript caches the turn's messages for the phone, minus the system
// prompt, which is rebuilt fresh each turn.
func (a *Agent) saveTranscript(ctx context.Context, req Request, messages []openai.ChatCompletionMessage) {
	if a.history == nil || req.Phone == "" {
		return
	}
	trimmed := messages
	if len(trimmed) > 0 && trimmed[0].Role == openai.ChatMessageRoleSystem {
		trimmed = trimmed[1:]
	}
	if err := a.history.Save(ctx, req.ClinicID, req.Phone, trimmed); err != nil {
		a.logger.Error("failed to save transcript", "error", err)
	}
}
