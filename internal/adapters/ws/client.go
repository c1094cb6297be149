package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"willow-auction-engine/internal/config"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedClient is one agent's connection to the live feed. Inbound
// messages (subscribe, ping) are handled on a worker pool; outbound
// alerts go through a buffered send channel drained by a single writer
// goroutine, since gorilla connections allow only one concurrent writer.
type FeedClient struct {
	id         string
	agentID    uuid.UUID
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *FeedHandler
	workerPool *pond.WorkerPool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger
}

type FeedClientParams struct {
	AgentID uuid.UUID
	Conn    *websocket.Conn
	Handler *FeedHandler
	Logger  zerolog.Logger
}

// NewFeedClient creates a new feed client
func NewFeedClient(params FeedClientParams) *FeedClient {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		config.FeedMaxWorkers,
		config.FeedMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	clientID := uuid.New().String()
	client := &FeedClient{
		id:         clientID,
		agentID:    params.AgentID,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, 100),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		logger:     params.Logger.With().Str("client_id", clientID).Str("agent_id", params.AgentID.String()).Logger(),
	}

	return client
}

func (c *FeedClient) Start() {
	go c.messageSender()
	go c.messageReceiver()
}

func (client *FeedClient) Stop() {
	client.mu.Lock()
	defer client.mu.Unlock()

	// Prevent double closing
	if client.stopped {
		return
	}
	client.stopped = true

	// sendChan is never closed: a Send racing this shutdown may still be
	// between its stopped check and the channel send, and sending on a
	// closed channel panics. messageSender exits on ctx.Done instead and
	// any messages left in the buffer are dropped with it.
	client.cancel()
	client.conn.Close()

	if client.workerPool != nil {
		client.workerPool.Stop()
	}
}

// Send sends a message to the client
func (client *FeedClient) Send(msg *ServerMessage) error {
	client.mu.Lock()
	if client.stopped {
		client.mu.Unlock()
		return fmt.Errorf("client is stopped")
	}
	client.mu.Unlock()

	select {
	case client.sendChan <- msg:
		return nil
	default:
		select {
		case client.sendChan <- msg:
			return nil
		case <-time.After(100 * time.Millisecond):
			return fmt.Errorf("client send channel is full")
		}
	}
}

func (client *FeedClient) messageSender() {
	for {
		select {
		case msg := <-client.sendChan:
			if err := client.sendMessage(msg); err != nil {
				client.logger.Error().Err(err).Msg("Failed to send message to client")
				return
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (client *FeedClient) messageReceiver() {
	for {
		select {
		case <-client.ctx.Done():
			return
		default:
			_, message, err := client.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					client.logger.Error().Err(err).Msg("WebSocket read error for client")
				} else {
					client.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed for client")
				}
				// Cancel context to notify handler about disconnection
				client.cancel()
				return
			}

			client.workerPool.Submit(func() {
				if err := client.handleMessage(message); err != nil {
					client.logger.Error().Err(err).Msg("Failed to handle message in worker pool")
					client.sendMessage(NewErrorMessage(err.Error()))
				}
			})
		}
	}
}

func (client *FeedClient) sendMessage(msg *ServerMessage) error {
	return client.conn.WriteJSON(msg)
}

func (client *FeedClient) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("message validation failed: %w", err)
	}

	if msg.Type == MessageTypePing {
		return client.Send(NewServerMessage(MessageTypePong))
	}

	if client.handler != nil {
		return client.handler.HandleClientMessage(client, msg)
	}
	return fmt.Errorf("handler not available")
}
