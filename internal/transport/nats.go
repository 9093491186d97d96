package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/config"
	"github.com/avvvet/partsbuddy-agent/internal/handlers"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/nats-io/nats.go"
)

const module = "transport"

type NATSTransport struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	config  *config.Config
	handler *handlers.ChatHandler
	logger  logger.ILogger
}

func NewNATSTransport(cfg *config.Config, handler *handlers.ChatHandler, log logger.ILogger) (*NATSTransport, error) {
	// Connect to NATS
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(module, "NATS disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info(module, "NATS reconnected", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info(module, "connected to NATS", map[string]interface{}{"url": cfg.NatsURL})

	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  log,
	}, nil
}

// Start subscribes to chat requests. Handlers run on the subscription's
// goroutine, one at a time, which keeps a session's turns in arrival order.
func (nt *NATSTransport) Start() error {
	// Subscribe to chat requests
	sub, err := nt.conn.Subscribe(nt.config.NatsRequestSubject, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}
	nt.sub = sub

	nt.logger.Info(module, "subscribed", map[string]interface{}{"subject": nt.config.NatsRequestSubject})
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	reply := processMessage(ctx, nt.handler, msg.Data, nt.logger)

	// Send response
	if err := msg.Respond(reply); err != nil {
		nt.logger.Error(module, "failed to send response", map[string]interface{}{"error": err.Error()})
	}
}

// processMessage decodes a request, runs it and encodes the reply
func processMessage(ctx context.Context, handler *handlers.ChatHandler, data []byte, log logger.ILogger) []byte {
	// Parse the request
	var request models.ChatRequest
	var response *models.ChatResponse
	if err := json.Unmarshal(data, &request); err != nil {
		log.Warn(module, "error parsing request", map[string]interface{}{"error": err.Error()})
		response = handler.ErrorResponse("", models.ErrorParseError, "Invalid request format")
	} else {
		// Call the handler
		response = handler.ProcessChat(ctx, &request)
	}

	out, err := json.Marshal(response)
	if err != nil {
		log.Error(module, "failed to marshal response", map[string]interface{}{"error": err.Error()})
		out, _ = json.Marshal(handler.ErrorResponse(request.SessionID, models.ErrorInternal, "failed to encode response"))
	}
	return out
}

func (nt *NATSTransport) Close() error {
	// Let in-flight requests finish before closing
	if nt.sub != nil {
		if err := nt.sub.Drain(); err != nil {
			nt.logger.Warn(module, "failed to drain subscription", map[string]interface{}{"error": err.Error()})
		}
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info(module, "NATS connection closed", nil)
	}
	return nil
}
