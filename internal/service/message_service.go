package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/observability"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

// Messaging sentinels surfaced through the handler.
var (
	ErrEmptyMessage      = errors.New("message content empty after sanitization")
	ErrRecipientNotFound = errors.New("message recipient not found")
)

const messageBufferSize = 32

// MessageService handles direct messaging between users, e.g. a parent asking
// a teacher about a pending promotion.
type MessageService interface {
	Send(ctx context.Context, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	History(ctx context.Context, callerID uint, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error)
	Attach(userID uint) (<-chan dto.MessageResponse, func())
	Start(ctx context.Context)
}

type messageService struct {
	repo        repository.MessageRepository
	users       repository.UserRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	sanitizer   *bluemonday.Policy
	nodeID      string

	mu      sync.RWMutex
	clients map[uint]map[chan dto.MessageResponse]struct{}
}

type messageEvent struct {
	Source  string              `json:"source"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// NewMessageService constructs the messaging service. The redis client and
// nats connection are optional; when absent delivery degrades to the local
// node's connections only.
func NewMessageService(repo repository.MessageRepository, users repository.UserRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) MessageService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":messages"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &messageService{
		repo:        repo,
		users:       users,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "message_service").Logger(),
		sanitizer:   bluemonday.StrictPolicy(),
		nodeID:      uuid.NewString(),
		clients:     make(map[uint]map[chan dto.MessageResponse]struct{}),
	}
}

// Start launches the cross-node consumers. Messages sent on another node
// reach local websocket clients through redis pub/sub or NATS.
func (s *messageService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Send persists the message, pushes it to both locally connected parties and
// fans it out to the other nodes.
func (s *messageService) Send(ctx context.Context, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	if _, err := s.users.GetByID(ctx, payload.ReceiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, ErrRecipientNotFound
		}
		return dto.MessageResponse{}, err
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: payload.ReceiverID,
		ThreadID:   payload.ThreadID,
		Content:    content,
	}
	if err := s.repo.Create(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(message)
	s.deliver(senderID, response)
	s.deliver(payload.ReceiverID, response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", response.ThreadID).Msg("failed to fan out message")
	}

	return response, nil
}

// History returns the caller's view of a thread. The participant scope lives
// in the repository, so a caller outside the thread gets an empty page.
func (s *messageService) History(ctx context.Context, callerID uint, query dto.MessageHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	var before *time.Time
	if query.Before != nil {
		before = query.Before
	}

	messages, err := s.repo.History(ctx, query.ThreadID, callerID, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// Attach registers a live message feed for the user, typically backing one
// websocket connection. The returned cleanup must be called on disconnect.
func (s *messageService) Attach(userID uint) (<-chan dto.MessageResponse, func()) {
	channel := make(chan dto.MessageResponse, messageBufferSize)

	s.mu.Lock()
	if _, exists := s.clients[userID]; !exists {
		s.clients[userID] = make(map[chan dto.MessageResponse]struct{})
	}
	s.clients[userID][channel] = struct{}{}
	s.mu.Unlock()

	observability.MessagingClientsActive().Inc()

	cleanup := func() {
		s.mu.Lock()
		if channels, ok := s.clients[userID]; ok {
			delete(channels, channel)
			close(channel)
			if len(channels) == 0 {
				delete(s.clients, userID)
			}
		}
		s.mu.Unlock()

		observability.MessagingClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *messageService) deliver(userID uint, message dto.MessageResponse) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for channel := range s.clients[userID] {
		select {
		case channel <- message:
		default:
			// slow consumer, drop rather than block the send path
		}
	}
}

func (s *messageService) publish(ctx context.Context, message dto.MessageResponse) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := messageEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *messageService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("message redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *messageService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "smartedu-messages", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats messages subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain message nats subscription")
		}
	}()
}

func (s *messageService) handleEvent(payload []byte) {
	var event messageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid message event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.deliver(event.Message.SenderID, event.Message)
	s.deliver(event.Message.ReceiverID, event.Message)
}
