package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// MessageSendRequest is the payload sent over the messaging websocket.
type MessageSendRequest struct {
	ThreadID   string `json:"thread_id" validate:"required,min=3,max=128"`
	ReceiverID uint   `json:"receiver_id" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required,min=1,max=4000"`
}

// MessageHistoryQuery filters the message history endpoint.
type MessageHistoryQuery struct {
	ThreadID string     `query:"thread_id" validate:"required,min=3,max=128"`
	Before   *time.Time `query:"before"`
	Limit    int        `query:"limit" validate:"omitempty,min=1,max=200"`
}

// MessageResponse is the serialized representation of a direct message.
type MessageResponse struct {
	ID         uint      `json:"id"`
	ThreadID   string    `json:"thread_id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageResponse converts a Message model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		ThreadID:   message.ThreadID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewMessageResponse(message))
	}
	return responses
}

// NotificationCreateRequest is used by services to emit a notification.
type NotificationCreateRequest struct {
	UserID  uint   `json:"user_id" validate:"required,gt=0"`
	Title   string `json:"title" validate:"omitempty,max=255"`
	Type    string `json:"type" validate:"required,min=2,max=64"`
	Message string `json:"message" validate:"required,min=1"`
}

// NotificationResponse is the serialized representation of a notification.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Title:     model.Title,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}
	return responses
}
