package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
)

type fakeMessageRepo struct {
	messages []models.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	message.ID = uint(len(r.messages) + 1)
	message.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeMessageRepo) History(ctx context.Context, threadID string, participantID uint, before *time.Time, limit int) ([]models.Message, error) {
	visible := make([]models.Message, 0)
	for _, message := range r.messages {
		if message.ThreadID != threadID {
			continue
		}
		if message.SenderID != participantID && message.ReceiverID != participantID {
			continue
		}
		visible = append(visible, message)
	}
	return visible, nil
}

type fakeUserLookup struct {
	users map[uint]models.User
}

func (r *fakeUserLookup) GetByID(ctx context.Context, id uint) (models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserLookup) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	listed := make([]models.User, 0)
	for _, user := range r.users {
		if user.Role == role {
			listed = append(listed, user)
		}
	}
	return listed, nil
}

func messagingUsers() *fakeUserLookup {
	return &fakeUserLookup{users: map[uint]models.User{
		1: {ID: 1, Name: "Pat Guardian", Role: models.RoleParent},
		2: {ID: 2, Name: "Taylor Teacher", Role: models.RoleTeacher},
	}}
}

func TestMessageServiceFanOutAcrossNodes(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	users := messagingUsers()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	nodeA := NewMessageService(&fakeMessageRepo{}, users, clientA, "smartedu-test", nil, validate, zerolog.Nop())
	nodeB := NewMessageService(&fakeMessageRepo{}, users, clientB, "smartedu-test", nil, validate, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	const stream = "smartedu-test:messages"
	require.Eventually(t, func() bool {
		return server.PubSubNumSub(stream)[stream] == 2
	}, 2*time.Second, 10*time.Millisecond)

	// The teacher's websocket lives on node B, the parent sends through node A.
	teacherFeed, detach := nodeB.Attach(2)
	defer detach()

	sent, err := nodeA.Send(context.Background(), 1, dto.MessageSendRequest{
		ThreadID:   "thread-1-2",
		ReceiverID: 2,
		Content:    "How is Sam doing in class?",
	})
	require.NoError(t, err)

	select {
	case received := <-teacherFeed:
		require.Equal(t, sent.Content, received.Content)
		require.Equal(t, uint(1), received.SenderID)
		require.Equal(t, "thread-1-2", received.ThreadID)
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the other node")
	}
}

func TestMessageServiceIgnoresOwnFanOutEvents(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	node := NewMessageService(&fakeMessageRepo{}, messagingUsers(), client, "smartedu-test", nil, validate, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	node.Start(ctx)

	const stream = "smartedu-test:messages"
	require.Eventually(t, func() bool {
		return server.PubSubNumSub(stream)[stream] == 1
	}, 2*time.Second, 10*time.Millisecond)

	feed, detach := node.Attach(2)
	defer detach()

	_, err = node.Send(context.Background(), 1, dto.MessageSendRequest{
		ThreadID:   "thread-1-2",
		ReceiverID: 2,
		Content:    "Hello!",
	})
	require.NoError(t, err)

	// Exactly one delivery: the local push. The node's own bus event is
	// dropped by the source check instead of duplicating the message.
	<-feed
	select {
	case duplicate := <-feed:
		t.Fatalf("unexpected duplicate delivery: %+v", duplicate)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMessageServiceHistoryIsParticipantScoped(t *testing.T) {
	repo := &fakeMessageRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewMessageService(repo, messagingUsers(), nil, "", nil, validate, zerolog.Nop())

	_, err := svc.Send(context.Background(), 1, dto.MessageSendRequest{
		ThreadID:   "thread-1-2",
		ReceiverID: 2,
		Content:    "Private question about Sam.",
	})
	require.NoError(t, err)

	visible, err := svc.History(context.Background(), 2, dto.MessageHistoryQuery{ThreadID: "thread-1-2"})
	require.NoError(t, err)
	require.Len(t, visible, 1)

	hidden, err := svc.History(context.Background(), 99, dto.MessageHistoryQuery{ThreadID: "thread-1-2"})
	require.NoError(t, err)
	require.Empty(t, hidden)
}
