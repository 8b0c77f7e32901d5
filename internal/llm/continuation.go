package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/metrics"
)

// continuePrompt is appended when the stored conversation ends on an
// assistant turn, so the exchange sent to the provider ends with a user
// message.
const continuePrompt = "Please continue this conversation where we left off."

// ErrNoTurns means the record has nothing to continue from.
var ErrNoTurns = errors.New("conversation has no turns")

// Continuer replays a stored conversation against an LLM provider instead of
// injecting it into a web front end.
type Continuer struct {
	client Client
	log    *logger.Logger
}

// NewContinuer builds a continuer over the given client.
func NewContinuer(client Client, log *logger.Logger) *Continuer {
	return &Continuer{client: client, log: log}
}

// Provider returns the underlying client's provider name.
func (c *Continuer) Provider() string { return c.client.Name() }

// Continue sends the record's turns as chat history and returns the model's
// next reply.
func (c *Continuer) Continue(ctx context.Context, rec *model.ConversationRecord, modelName string) (*CompletionResponse, error) {
	if rec == nil || len(rec.Turns) == 0 {
		return nil, ErrNoTurns
	}

	messages := Messages(rec)
	resp, err := c.client.Complete(ctx, &CompletionRequest{
		Model:    modelName,
		Messages: messages,
	})
	if err != nil {
		metrics.LLMContinuations.WithLabelValues(c.client.Name(), "error").Inc()
		return nil, err
	}
	metrics.LLMContinuations.WithLabelValues(c.client.Name(), "ok").Inc()
	c.log.Info("conversation continued",
		zap.String("id", rec.ID),
		zap.String("provider", c.client.Name()),
		zap.String("model", resp.Model),
		zap.Int64("latency_ms", resp.LatencyMs),
	)
	return resp, nil
}

// Messages converts a record's turns into provider chat messages, collapsing
// consecutive same-role turns and guaranteeing the sequence ends with a user
// message.
func Messages(rec *model.ConversationRecord) []ChatMessage {
	var out []ChatMessage
	for _, t := range rec.Turns {
		role := "assistant"
		if t.Role == model.RoleUser {
			role = "user"
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + t.Text
			continue
		}
		out = append(out, ChatMessage{Role: role, Content: t.Text})
	}
	if n := len(out); n > 0 && out[n-1].Role == "assistant" {
		out = append(out, ChatMessage{Role: "user", Content: continuePrompt})
	}
	return out
}
