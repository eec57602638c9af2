package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTranscriptTTL = 24 * time.Hour

// ErrNoTranscript means no cached transcript exists for the phone.
var ErrNoTranscript = errors.New("conversation: no cached transcript")

// HistoryStore caches conversation transcripts in Redis keyed by clinic and
// phone. The cache is a convenience for channels that cannot carry history
// themselves; losing it only costs conversational context.
type HistoryStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewHistoryStore creates the transcript cache. ttl <= 0 uses 24h.
func NewHistoryStore(redisClient *redis.Client, ttl time.Duration) *HistoryStore {
	if redisClient == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &HistoryStore{
		redis:  redisClient,
		ttl:    ttl,
		tracer: otel.Tracer("sisvida.internal.conversation.history"),
	}
}

// Save persists the transcript, resetting the TTL.
func (s *HistoryStore) Save(ctx context.Context, clinicID uuid.UUID, phone string, history []openai.ChatCompletionMessage) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_transcript")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal transcript: %w", err)
	}
	if err := s.redis.Set(ctx, transcriptKey(clinicID, phone), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist transcript: %w", err)
	}
	return nil
}

// Load retrieves the cached transcript, or ErrNoTranscript when none exists.
func (s *HistoryStore) Load(ctx context.Context, clinicID uuid.UUID, phone string) ([]openai.ChatCompletionMessage, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_transcript")
	defer span.End()

	data, err := s.redis.Get(ctx, transcriptKey(clinicID, phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoTranscript
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load transcript: %w", err)
	}

	var history []openai.ChatCompletionMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode transcript: %w", err)
	}
	return history, nil
}

func transcriptKey(clinicID uuid.UUID, phone string) string {
	return fmt.Sprintf("transcript:%s:%s", clinicID, phone)
}
