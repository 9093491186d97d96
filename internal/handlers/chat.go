package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const module = "handlers"

// FallbackMessage is the reply when a turn could not be handled at all
const FallbackMessage = "I'm sorry, I encountered an error processing your request. Please try again."

var ErrInvalidRequest = errors.New("invalid request")

// Agent is the conversational core behind the handler
type Agent interface {
	HandleTurn(ctx context.Context, sessionID, text string) (*models.AgentResponse, error)
	History(ctx context.Context, sessionID string) ([]models.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

type ChatHandler struct {
	agent    Agent
	validate *validator.Validate
	logger   logger.ILogger
}

func NewChatHandler(agent Agent, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		agent:    agent,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

// ProcessChat handles one request. Failures are reported in the response, never as a Go error.
func (h *ChatHandler) ProcessChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse {
	if err := h.validateRequest(request); err != nil {
		return h.ErrorResponse(request.SessionID, models.ErrorInvalidRequest, err.Error())
	}
	if request.SessionID == "" {
		request.SessionID = uuid.NewString()
	}

	response, err := h.agent.HandleTurn(ctx, request.SessionID, request.Message)
	if err != nil {
		h.logger.Error(module, "turn failed", map[string]interface{}{
			"session_id": request.SessionID,
			"error":      err.Error(),
		})
		return h.ErrorResponse(request.SessionID, models.ErrorStoreFailed, err.Error())
	}

	return &models.ChatResponse{Response: response, Success: true}
}

// History returns the stored conversation for sessionID
func (h *ChatHandler) History(ctx context.Context, sessionID string) (*models.HistoryResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}

	messages, err := h.agent.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out := &models.HistoryResponse{SessionID: sessionID, Messages: make([]models.HistoryMessage, 0, len(messages))}
	for _, msg := range messages {
		out.Messages = append(out.Messages, models.HistoryMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

func (h *ChatHandler) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	return h.agent.Clear(ctx, sessionID)
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	request.Message = strings.TrimSpace(request.Message)
	request.SessionID = strings.TrimSpace(request.SessionID)

	if err := h.validate.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(fieldErrors[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if field == "sessionid" {
		field = "session_id"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// ErrorResponse builds the failure payload sent back to the gateway
func (h *ChatHandler) ErrorResponse(sessionID, errorCode, errorMessage string) *models.ChatResponse {
	return &models.ChatResponse{
		Response: &models.AgentResponse{
			SessionID: sessionID,
			Reply:     FallbackMessage,
			Products:  []models.Product{},
		},
		Success:   false,
		ErrorCode: &errorCode,
		Error:     &errorMessage,
	}
}
