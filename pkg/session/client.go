// Package session streams microphone audio to a live conversational model
// and yields the model's synthesized speech as a sequence of events.
//
// Events arrive on a channel instead of callbacks so that exactly one
// downstream goroutine consumes them, in order.
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Common errors.
var (
	ErrNotConnected   = fmt.Errorf("session: not connected")
	ErrAlreadyStarted = fmt.Errorf("session: already connected")
)

// Event is one inbound session message the pipeline cares about.
type Event struct {
	// Audio is a chunk of synthesized PCM16 speech at the output sample
	// rate. Nil for non-audio events.
	Audio []byte

	// TurnComplete marks the end of the model's turn.
	TurnComplete bool

	// Interrupted means the model was cut off mid-turn (barge-in). Treated
	// like a turn boundary by the pipeline.
	Interrupted bool
}

// Client is a live speech session over a websocket.
type Client struct {
	cfg    Config
	logger *slog.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu        sync.Mutex
	connected bool
	closed    bool
	err       error

	events chan Event
}

// NewClient creates a client. Call Connect before anything else.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, 64),
	}, nil
}

// Connect dials the live endpoint, configures the session, and sends the
// persona prompt. The read loop starts immediately.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s?key=%s", liveURL, c.cfg.APIKey)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.Dial(url, header)
	if err != nil {
		return fmt.Errorf("session: failed to connect: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.mu.Unlock()

	if err := c.sendSetup(); err != nil {
		c.Close()
		return fmt.Errorf("session: failed to configure: %w", err)
	}

	if c.cfg.SystemPrompt != "" {
		if err := c.sendPrompt(c.cfg.SystemPrompt); err != nil {
			c.Close()
			return fmt.Errorf("session: failed to send prompt: %w", err)
		}
	}

	go c.readLoop()

	c.logger.Info("live session connected", "model", c.cfg.Model, "voice", c.cfg.Voice)
	return nil
}

// sendSetup sends the initial session configuration.
func (c *Client) sendSetup() error {
	model := c.cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	setup := map[string]any{
		"setup": map[string]any{
			"model": model,
			"generation_config": map[string]any{
				"response_modalities": []string{"AUDIO"},
				"speech_config": map[string]any{
					"language_code": c.cfg.Language,
					"voice_config": map[string]any{
						"prebuilt_voice_config": map[string]any{
							"voice_name": c.cfg.Voice,
						},
					},
				},
			},
		},
	}

	return c.sendJSON(setup)
}

// sendPrompt sends a complete user text turn.
func (c *Client) sendPrompt(text string) error {
	msg := map[string]any{
		"client_content": map[string]any{
			"turns": []map[string]any{
				{
					"role": "user",
					"parts": []map[string]any{
						{"text": text},
					},
				},
			},
			"turn_complete": true,
		},
	}
	return c.sendJSON(msg)
}

// SendAudio forwards one captured microphone frame as a realtime chunk.
func (c *Client) SendAudio(pcm16 []byte) error {
	c.mu.Lock()
	if !c.connected || c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.mu.Unlock()

	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(pcm16),
					"mime_type": fmt.Sprintf("audio/pcm;rate=%d", c.cfg.InputSampleRate),
				},
			},
		},
	}

	return c.sendJSON(msg)
}

// CompleteTurn tells the model the user's turn is over.
func (c *Client) CompleteTurn() error {
	msg := map[string]any{
		"client_content": map[string]any{
			"turn_complete": true,
		},
	}
	return c.sendJSON(msg)
}

// Events returns the inbound event stream. The channel is closed when the
// session ends; check Err afterwards.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the error that ended the session, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// IsConnected reports whether the session is live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

// Close shuts the session down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// readLoop parses inbound messages into events until the socket dies.
func (c *Client) readLoop() {
	defer close(c.events)

	for {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.err = fmt.Errorf("session: read: %w", err)
			}
			c.connected = false
			c.mu.Unlock()
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug("session: unparseable message", "error", err)
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches a single inbound message.
func (c *Client) handleMessage(msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		c.logger.Info("live session ready")
		return
	}

	serverContent, ok := msg["serverContent"].(map[string]any)
	if !ok {
		return
	}

	if interrupted, ok := serverContent["interrupted"].(bool); ok && interrupted {
		c.emit(Event{Interrupted: true})
		return
	}

	if modelTurn, ok := serverContent["modelTurn"].(map[string]any); ok {
		c.emitAudio(modelTurn)
	}

	if turnComplete, ok := serverContent["turnComplete"].(bool); ok && turnComplete {
		c.emit(Event{TurnComplete: true})
	}
}

// emitAudio extracts inline PCM chunks from a model turn.
func (c *Client) emitAudio(modelTurn map[string]any) {
	parts, ok := modelTurn["parts"].([]any)
	if !ok {
		return
	}

	for _, part := range parts {
		partMap, ok := part.(map[string]any)
		if !ok {
			continue
		}
		inlineData, ok := partMap["inlineData"].(map[string]any)
		if !ok {
			continue
		}
		mimeType, _ := inlineData["mimeType"].(string)
		if !strings.HasPrefix(mimeType, "audio/pcm") {
			continue
		}
		data, _ := inlineData["data"].(string)
		audio, err := base64.StdEncoding.DecodeString(data)
		if err != nil || len(audio) == 0 {
			continue
		}
		c.emit(Event{Audio: audio})
	}
}

// emit forwards an event, dropping nothing: the consumer is the pipeline's
// receive loop and it must see every event in order.
func (c *Client) emit(ev Event) {
	c.events <- ev
}

// sendJSON sends a JSON message over the websocket, serialized.
func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(v)
}
