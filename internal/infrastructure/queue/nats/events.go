package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Events receives index-update notifications published by the indexing
// collaborator. Every instance subscribes individually (no queue group):
// each one maintains its own result cache and must see every invalidation.
type Events struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Logger               *slog.Logger
}

func New(url, subject string) (*Events, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Events, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("workspace-search"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Events{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

func (e *Events) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}

// SubscribeIndexUpdated blocks until ctx is cancelled, calling handler for
// every index-update event. Malformed payloads are logged and dropped.
func (e *Events) SubscribeIndexUpdated(ctx context.Context, handler func(context.Context, int64) error) error {
	sub, err := e.conn.Subscribe(e.subject, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		workspaceID, err := parseIndexUpdate(msg.Data)
		if err != nil {
			e.logger.Warn("index_update_payload_invalid", "error", err, "payload", string(msg.Data))
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, workspaceID); err != nil {
			e.logger.Warn("index_update_handler_error", "workspace_id", workspaceID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := e.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := e.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// parseIndexUpdate accepts both the JSON envelope published by the indexing
// collaborator and a bare decimal workspace id.
func parseIndexUpdate(data []byte) (int64, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, fmt.Errorf("empty payload")
	}

	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			WorkspaceID int64 `json:"workspace_id"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return 0, fmt.Errorf("decode index update: %w", err)
		}
		if envelope.WorkspaceID <= 0 {
			return 0, fmt.Errorf("missing workspace_id")
		}
		return envelope.WorkspaceID, nil
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse workspace id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive workspace id %d", id)
	}
	return id, nil
}
