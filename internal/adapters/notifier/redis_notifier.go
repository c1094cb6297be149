package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"willow-auction-engine/internal/domain/lead"
	"willow-auction-engine/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisNotifier fans out auction lifecycle alerts over Redis pub/sub.
// The publish side implements outbound.Notifier: each opened auction is
// announced on its province channel and on a firehose channel. The
// subscribe side implements outbound.Subscriber for delivery surfaces
// like the agent live feed, keeping one pubsub connection per client.
type RedisNotifier struct {
	client      *redis.Client
	subscribers map[string]chan outbound.AuctionOpenedEvent // clientID -> local channel
	pubsubs     map[string]*redis.PubSub                    // clientID -> pubsub instance
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	logger      zerolog.Logger
}

type RedisNotifierParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

// NewRedisNotifier creates a new Redis-backed notifier
func NewRedisNotifier(params RedisNotifierParams) *RedisNotifier {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisNotifier{
		client:      params.RedisClient,
		subscribers: make(map[string]chan outbound.AuctionOpenedEvent),
		pubsubs:     make(map[string]*redis.PubSub),
		ctx:         ctx,
		cancel:      cancel,
		logger:      params.Logger.With().Str("component", "redis_notifier").Logger(),
	}
}

// FirehoseChannel receives every opened-auction alert regardless of province
const FirehoseChannel = "auctions:opened"

func provinceChannel(province string) string {
	return fmt.Sprintf("auctions:opened:%s", strings.ToLower(province))
}

// NotifyAuctionOpened publishes the opened alert for a lead to its
// province channel and the firehose.
func (n *RedisNotifier) NotifyAuctionOpened(ctx context.Context, l *lead.Lead) error {
	event := outbound.NewAuctionOpenedEvent(l)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auction opened event: %w", err)
	}

	for _, channel := range []string{provinceChannel(l.Locale.Province), FirehoseChannel} {
		result := n.client.Publish(ctx, channel, payload)
		if err := result.Err(); err != nil {
			n.logger.Error().Err(err).Str("channel", channel).Str("lead_id", l.ID.String()).Msg("Failed to publish auction opened event")
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}

		n.logger.Info().
			Str("channel", channel).
			Str("lead_id", l.ID.String()).
			Int64("subscriber_count", result.Val()).
			Msg("Published auction opened event")
	}

	return nil
}

// Subscribe registers a client for opened-auction alerts in the given
// provinces. An empty province list subscribes the client to the
// firehose. Events arrive on eventChan until Unsubscribe. A repeated
// subscribe replaces the client's prior registration, so the latest
// province filter is the one in effect: the old pubsub and local
// channel are torn down before the new ones are registered.
func (n *RedisNotifier) Subscribe(ctx context.Context, clientID string, provinces []string, eventChan chan outbound.AuctionOpenedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pubsub, exists := n.pubsubs[clientID]; exists {
		n.logger.Info().Str("client_id", clientID).Msg("Replacing existing subscription for client")
		if err := pubsub.Close(); err != nil {
			n.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(n.pubsubs, clientID)
		if oldChan, ok := n.subscribers[clientID]; ok && oldChan != eventChan {
			close(oldChan)
			delete(n.subscribers, clientID)
		}
	}

	channels := make([]string, 0, len(provinces))
	for _, province := range provinces {
		channels = append(channels, provinceChannel(province))
	}
	if len(channels) == 0 {
		channels = append(channels, FirehoseChannel)
	}

	pubsub := n.client.Subscribe(ctx, channels...)
	n.pubsubs[clientID] = pubsub
	n.subscribers[clientID] = eventChan

	go n.listenForRedisMessages(pubsub, clientID, eventChan)

	n.logger.Info().
		Str("client_id", clientID).
		Strs("channels", channels).
		Msg("Client subscribed to auction alerts")
	return nil
}

// Unsubscribe removes a client's registration and closes its channel
func (n *RedisNotifier) Unsubscribe(ctx context.Context, clientID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pubsub, exists := n.pubsubs[clientID]; exists {
		if err := pubsub.Close(); err != nil {
			n.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(n.pubsubs, clientID)
	}

	if eventChan, exists := n.subscribers[clientID]; exists {
		close(eventChan)
		delete(n.subscribers, clientID)
	}

	n.logger.Info().Str("client_id", clientID).Msg("Client unsubscribed from auction alerts")
	return nil
}

// listenForRedisMessages forwards Redis messages to the client's local channel
func (n *RedisNotifier) listenForRedisMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.AuctionOpenedEvent) {
	defer func() {
		if err := recover(); err != nil {
			n.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message listener panic for client")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				n.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.AuctionOpenedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				n.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message for client")
				continue
			}

			select {
			case localChan <- event:
			default:
				n.logger.Warn().Str("client_id", clientID).Msg("Local channel full for client, dropping event")
			}

		case <-n.ctx.Done():
			n.logger.Info().Str("client_id", clientID).Msg("Notifier context cancelled for client")
			return
		}
	}
}

// Close tears down all client subscriptions and the Redis connection
func (n *RedisNotifier) Close() error {
	n.cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	for clientID, eventChan := range n.subscribers {
		close(eventChan)
		delete(n.subscribers, clientID)
	}

	for clientID, pubsub := range n.pubsubs {
		if err := pubsub.Close(); err != nil {
			n.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(n.pubsubs, clientID)
	}

	return n.client.Close()
}
