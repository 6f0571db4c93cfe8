package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/profilesync/internal/middleware"
	"github.com/nfrund/profilesync/internal/profile"
	"github.com/nfrund/profilesync/internal/pubsub"
)

const (
	outcomeSendBuffer = 16
	outcomeWriteWait  = 10 * time.Second
)

// OutcomeStream pushes the caller's reconciliation outcomes over a websocket
// as they are reported. Each connection holds its own bus subscription.
type OutcomeStream struct {
	subscriber     pubsub.Subscriber
	originPatterns []string
}

// NewOutcomeStream creates an OutcomeStream. originPatterns restricts
// cross-origin upgrades; empty allows same-origin only.
func NewOutcomeStream(subscriber pubsub.Subscriber, originPatterns ...string) *OutcomeStream {
	return &OutcomeStream{subscriber: subscriber, originPatterns: originPatterns}
}

// ServeWS upgrades the request and streams outcome JSON until the client
// disconnects. It must run behind middleware.JWTAuth.
func (s *OutcomeStream) ServeWS(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Message: "Authentication required"})
	}
	logger := middleware.FromContext(c.Request().Context()).With("user_id", userID)

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		logger.Error("Failed to upgrade outcome websocket", "event", "outcome_ws_upgrade_failure", "error", err)
		return nil
	}
	defer conn.CloseNow()

	// CloseRead discards client frames and cancels ctx once the peer goes away.
	ctx := conn.CloseRead(context.WithoutCancel(c.Request().Context()))

	send := make(chan []byte, outcomeSendBuffer)
	err = s.subscriber.Subscribe(ctx, profile.OutcomeTopic, func(_ context.Context, msg pubsub.Message) error {
		if msg.UserID != userID {
			return nil
		}
		select {
		case send <- msg.Payload:
		default:
			logger.Warn("Outcome stream is backed up, dropping outcome", "event", "outcome_ws_dropped")
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to subscribe to outcomes", "event", "outcome_ws_subscribe_failure", "error", err)
		conn.Close(websocket.StatusInternalError, "subscription failed")
		return nil
	}

	logger.Debug("Outcome stream opened", "event", "outcome_ws_open")
	writeOutcomes(ctx, conn, send, logger)
	return nil
}

func writeOutcomes(ctx context.Context, conn *websocket.Conn, send <-chan []byte, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Outcome stream closed", "event", "outcome_ws_closed")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case payload := <-send:
			wctx, cancel := context.WithTimeout(ctx, outcomeWriteWait)
			err := conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				logger.Warn("Outcome stream write failed", "event", "outcome_ws_write_failure", "error", err)
				return
			}
		}
	}
}
