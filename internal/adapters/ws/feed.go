package ws

import (
	"context"
	"net/http"
	"sync"

	"willow-auction-engine/internal/config"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedHandler accepts agent connections and bridges the notifier's
// opened-auction stream onto them. Each connected client gets its own
// subscription channel; a forwarding goroutine turns events into feed
// messages.
type FeedHandler struct {
	subscriber outbound.Subscriber
	upgrader   websocket.Upgrader
	clients    map[string]*FeedClient
	mu         sync.RWMutex
	logger     zerolog.Logger
}

type FeedHandlerParams struct {
	Config     *config.Config
	Subscriber outbound.Subscriber
	Logger     zerolog.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(params FeedHandlerParams) *FeedHandler {
	return &FeedHandler{
		subscriber: params.Subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  params.Config.Feed.ReadBufferSize,
			WriteBufferSize: params.Config.Feed.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*FeedClient),
		logger:  params.Logger.With().Str("component", "feed_handler").Logger(),
	}
}

// HandleFeed upgrades an agent's HTTP request to a feed connection. The
// agent identifies itself with the agent_id query parameter; province
// filters arrive later over the socket as subscribe messages.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.URL.Query().Get("agent_id"))
	if err != nil {
		http.Error(w, "valid agent_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := NewFeedClient(FeedClientParams{
		AgentID: agentID,
		Conn:    conn,
		Handler: h,
		Logger:  h.logger,
	})

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	client.Start()
	go h.reapOnDisconnect(client)

	h.logger.Info().
		Str("client_id", client.id).
		Str("agent_id", agentID.String()).
		Msg("Agent connected to live feed")
}

// HandleClientMessage dispatches a validated client message
func (h *FeedHandler) HandleClientMessage(client *FeedClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return h.subscribe(client, msg.Provinces)
	case MessageTypeUnsubscribe:
		return h.subscriber.Unsubscribe(client.ctx, client.id)
	}
	return nil
}

func (h *FeedHandler) subscribe(client *FeedClient, provinces []string) error {
	eventChan := make(chan outbound.AuctionOpenedEvent, 10)
	if err := h.subscriber.Subscribe(client.ctx, client.id, provinces, eventChan); err != nil {
		return err
	}

	go h.forwardEvents(client, eventChan)

	ack := NewServerMessage(MessageTypeSubscribed)
	ack.Provinces = provinces
	return client.Send(ack)
}

// forwardEvents relays opened-auction alerts to one client until its
// subscription channel closes or the connection drops.
func (h *FeedHandler) forwardEvents(client *FeedClient, eventChan chan outbound.AuctionOpenedEvent) {
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := client.Send(NewAuctionOpenedMessage(event)); err != nil {
				h.logger.Warn().Err(err).Str("client_id", client.id).Msg("Failed to deliver auction opened alert")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

// reapOnDisconnect tears down a client's subscription when its
// connection context ends.
func (h *FeedHandler) reapOnDisconnect(client *FeedClient) {
	<-client.ctx.Done()

	if err := h.subscriber.Unsubscribe(context.Background(), client.id); err != nil {
		h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to unsubscribe client")
	}

	h.mu.Lock()
	delete(h.clients, client.id)
	h.mu.Unlock()

	client.Stop()

	h.logger.Info().Str("client_id", client.id).Msg("Agent disconnected from live feed")
}

// Close stops all connected clients
func (h *FeedHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.Stop()
		delete(h.clients, id)
	}
}
