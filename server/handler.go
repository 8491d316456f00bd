// Package server wires signature verification, event parsing, policy,
// and agent dispatch into HTTP handlers.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voxkit/voxkit/agent"
	"github.com/voxkit/voxkit/config"
	"github.com/voxkit/voxkit/policy"
	"github.com/voxkit/voxkit/sse"
	"github.com/voxkit/voxkit/store"
	"github.com/voxkit/voxkit/webhook"
)

// Handler handles HTTP requests.
type Handler struct {
	config     *config.Config
	store      store.Store
	locks      *store.ConversationLocks
	agent      agent.Agent
	policy     *policy.Engine
	httpClient *http.Client

	// now is swapped in tests to pin the verification clock.
	now func() time.Time
	// authorizeURL overrides the platform authorize endpoint in tests.
	authorizeURL string
}

// NewHandler creates a new handler.
func NewHandler(cfg *config.Config, st store.Store, ag agent.Agent, pol *policy.Engine) *Handler {
	return &Handler{
		config:     cfg,
		store:      st,
		locks:      store.NewConversationLocks(),
		agent:      ag,
		policy:     pol,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST(h.config.AgentRoute, h.Webhook)
	e.POST(h.config.AuthorizeRoute, h.Authorize)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"agent":  h.agent.Name(),
	})
}

// Webhook handles a platform webhook delivery: verify the signature,
// parse the typed event, check policy, then dispatch to the agent.
// Turn-scoped events answer with an SSE stream; session-scoped events
// answer with a small JSON ack.
func (h *Handler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}

	if h.config.WebhookSecret == "" {
		log.Printf("ERROR: LAYERCODE_WEBHOOK_SECRET is not configured")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "webhook secret not configured"})
	}

	signature := c.Request().Header.Get(webhook.SignatureHeader)
	if err := webhook.Verify(body, signature, h.config.WebhookSecret, h.config.SignatureTolerance, h.now()); err != nil {
		log.Printf("WARN: rejected webhook: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	evt, err := webhook.Parse(body)
	if err != nil {
		log.Printf("WARN: payload validation failed: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	decision, err := h.policy.Evaluate(ctx, policyInput(evt))
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "policy evaluation failed"})
	}
	if decision != policy.DecisionAllow {
		log.Printf("INFO: policy blocked %s event for conversation %s", evt.EventType(), evt.ConversationID())
		return c.JSON(http.StatusForbidden, map[string]string{"error": "event blocked by policy"})
	}

	log.Printf("INFO: webhook received: type=%s conversation=%s", evt.EventType(), evt.ConversationID())

	h.locks.Lock(evt.ConversationID())
	defer h.locks.Unlock(evt.ConversationID())

	switch evt := evt.(type) {
	case *webhook.SessionStartEvent:
		return h.streamTurn(c, evt.TurnID(), func(ctx context.Context, stream *webhook.Stream) error {
			return h.agent.HandleSessionStart(ctx, evt, stream)
		})

	case *webhook.MessageEvent:
		return h.handleMessage(c, evt)

	case *webhook.DataEvent:
		dataHandler, ok := h.agent.(agent.DataHandler)
		if !ok {
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		}
		return h.streamTurn(c, evt.TurnID(), func(ctx context.Context, stream *webhook.Stream) error {
			return dataHandler.HandleData(ctx, evt, stream)
		})

	case *webhook.SessionUpdateEvent:
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})

	case *webhook.SessionEndEvent:
		return h.handleSessionEnd(c, evt)
	}

	// Parse admits only the five known variants.
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported event type"})
}

func (h *Handler) handleMessage(c echo.Context, evt *webhook.MessageEvent) error {
	ctx := c.Request().Context()

	history, err := h.store.GetMessages(ctx, evt.ConversationID())
	if err != nil {
		log.Printf("ERROR: failed to load history: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
	}

	var newMessages []store.Message
	streamErr := h.streamTurn(c, evt.TurnID(), func(ctx context.Context, stream *webhook.Stream) error {
		messages, err := h.agent.HandleMessage(ctx, evt, stream, history)
		newMessages = messages
		return err
	})

	if len(newMessages) > 0 {
		// Persist with a fresh context: the request context may already be
		// canceled by a client disconnect mid-stream.
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.AppendMessages(persistCtx, newMessages); err != nil {
			log.Printf("ERROR: failed to append history: %v", err)
		}
	}

	return streamErr
}

func (h *Handler) handleSessionEnd(c echo.Context, evt *webhook.SessionEndEvent) error {
	ctx := c.Request().Context()

	if err := h.store.RecordSessionEnd(ctx, sessionEndRecord(evt, h.now())); err != nil {
		log.Printf("ERROR: failed to record session end: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record session end"})
	}

	if err := h.agent.HandleSessionEnd(ctx, evt); err != nil {
		log.Printf("WARN: agent session end handler failed: %v", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// streamTurn commits SSE headers, runs the agent handler, and always
// terminates the stream with the response.end marker. Handler failures
// after headers are sent cannot change the status code; they surface as
// a response.data error payload before the end marker.
func (h *Handler) streamTurn(c echo.Context, turnID string, fn func(ctx context.Context, stream *webhook.Stream) error) error {
	ctx := c.Request().Context()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache, no-transform")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	enc := sse.NewEncoder(c.Response())
	stream := webhook.NewStream(turnID, enc)
	defer func() {
		if err := stream.End(); err != nil {
			log.Printf("WARN: failed to write stream end marker: %v", err)
		}
	}()

	if err := fn(ctx, stream); err != nil {
		if ctx.Err() != nil {
			// Client went away; nothing left to deliver.
			log.Printf("INFO: stream for turn %s canceled: %v", turnID, ctx.Err())
			return nil
		}
		log.Printf("ERROR: agent handler failed: %v", err)
		if writeErr := stream.Data(map[string]string{"error": err.Error()}); writeErr != nil {
			log.Printf("WARN: failed to write stream error payload: %v", writeErr)
		}
	}

	return nil
}

func policyInput(evt webhook.Event) policy.Input {
	input := policy.Input{
		EventType:      string(evt.EventType()),
		SessionID:      evt.SessionID(),
		ConversationID: evt.ConversationID(),
		TurnID:         evt.TurnID(),
	}
	type metadataCarrier interface{ RawMetadata() json.RawMessage }
	if m, ok := evt.(metadataCarrier); ok && len(m.RawMetadata()) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(m.RawMetadata(), &metadata); err == nil {
			input.Metadata = metadata
		}
	}
	return input
}

func sessionEndRecord(evt *webhook.SessionEndEvent, now time.Time) *store.SessionEnd {
	end := &store.SessionEnd{
		SessionID:      evt.SessionID(),
		ConversationID: evt.ConversationID(),
		RecordedAt:     now,
	}
	if evt.AgentID != nil {
		end.AgentID = *evt.AgentID
	}
	if evt.StartedAt != nil {
		end.StartedAt = *evt.StartedAt
	}
	if evt.EndedAt != nil {
		end.EndedAt = *evt.EndedAt
	}
	if evt.Duration != nil {
		end.DurationMs = *evt.Duration
	}
	if evt.Transcript != nil {
		end.Transcript = make([]store.TranscriptEntry, 0, len(evt.Transcript))
		for _, item := range evt.Transcript {
			end.Transcript = append(end.Transcript, store.TranscriptEntry{
				Role:      item.Role,
				Text:      item.Text,
				Timestamp: strings.Trim(string(item.Timestamp), `"`),
			})
		}
	}
	return end
}
