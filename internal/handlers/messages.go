package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"nhooyr.io/websocket"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/realtime"
	"github.com/Skotchmaster/gigmarket/internal/repo"
)

const streamWriteWait = 10 * time.Second

type MessageHandler struct {
	Repo *repo.GormRepo
	// Hub is optional; without it rooms are poll only.
	Hub *realtime.Hub
}

type createMessageRequest struct {
	Room string `json:"room" validate:"required,max=120"`
	Text string `json:"text" validate:"required,max=5000"`
}

func (h *MessageHandler) GetRoom(c echo.Context) error {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		return apperrors.Validation("room: is required")
	}

	msgs, err := h.Repo.MessagesByRoom(c.Request().Context(), room)
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// PostMessage records the authenticated principal as sender; any senderId
// in the body is ignored.
func (h *MessageHandler) PostMessage(c echo.Context) error {
	user, ok := authmw.Principal(c)
	if !ok {
		return apperrors.Unauthenticated("no token")
	}

	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	msg := &models.Message{Room: req.Room, Text: req.Text, SenderID: user.ID}
	if err := h.Repo.CreateMessage(ctx, msg); err != nil {
		return apperrors.Internal(err)
	}
	if h.Hub != nil {
		if err := h.Hub.Publish(msg.Room, realtime.EventMessageNew, msg); err != nil {
			logging.FromContext(ctx).Error("room_publish_failed", "room", msg.Room, "error", err)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"msg": msg})
}

// StreamRoom upgrades to a websocket and pushes every message posted to the
// room after the upgrade. Client frames are ignored.
func (h *MessageHandler) StreamRoom(c echo.Context) error {
	if h.Hub == nil {
		return apperrors.Unavailable("streaming is not configured")
	}
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		return apperrors.Validation("room: is required")
	}
	l := logging.FromContext(c.Request().Context()).With("handler", "room_stream", "room", room)

	sub := h.Hub.Subscribe(room)
	defer sub.Close()

	// the server's read/write timeouts must not cut a long lived stream
	rc := http.NewResponseController(c.Response().Writer)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	// nil options: browsers must be same origin, clients without Origin pass
	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		l.Warn("stream_accept_failed", "error", err)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := conn.CloseRead(c.Request().Context())
	l.Info("stream_opened")

	for {
		select {
		case <-ctx.Done():
			l.Info("stream_closed")
			return nil
		case data, ok := <-sub.C:
			if !ok {
				l.Warn("stream_dropped", "reason", "slow consumer")
				conn.Close(websocket.StatusPolicyViolation, "too slow")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				l.Info("stream_closed", "error", err)
				return nil
			}
		}
	}
}
