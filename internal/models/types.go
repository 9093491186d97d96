package models

// ChatRequest is the inbound request from the gateway (NATS or HTTP)
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	Message   string `json:"message" validate:"required,max=2000"`
}

// ChatResponse wraps the agent response for the gateway
type ChatResponse struct {
	Response  *AgentResponse `json:"response"`
	Success   bool           `json:"success"`
	ErrorCode *string        `json:"error_code,omitempty"`
	Error     *string        `json:"error,omitempty"`
}

// AgentResponse is the payload returned for every handled turn
type AgentResponse struct {
	SessionID        string       `json:"session_id"`
	Reply            string       `json:"reply"`
	Products         []Product    `json:"products"`
	Intent           Intent       `json:"intent"`
	InScope          bool         `json:"in_scope"`
	Entities         Entities     `json:"entities"`
	SuggestedActions []string     `json:"suggested_actions"`
	ToolResults      []ToolResult `json:"tool_results,omitempty"`
}

// HistoryResponse is returned by the conversation history endpoint
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Error codes
const (
	ErrorInvalidRequest = "INVALID_REQUEST"
	ErrorParseError     = "PARSE_ERROR"
	ErrorInternal       = "INTERNAL_ERROR"
	ErrorStoreFailed    = "CONVERSATION_STORE_FAILED"
)
