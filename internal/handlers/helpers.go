package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/upload"
)

const publishTimeout = 5 * time.Second

// publish is best effort: a broker outage never fails the request.
func publish(ctx context.Context, p mykafka.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", topic, "type", event["type"], "error", err)
	}
}

// formFile returns nil when the part is absent.
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.Validation("malformed multipart body")
	}
	return fh, nil
}

// bindError keeps the cause so a body cut off by the request limit is
// still recognisable upstream.
func bindError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeValidation, "invalid body", http.StatusBadRequest)
}

func uploadError(err error) error {
	var rej *upload.Rejection
	if errors.As(err, &rej) {
		return apperrors.UploadRejected(rej.Message, err)
	}
	return apperrors.Internal(err)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NotFound("not found")
	}
	return uint(id), nil
}
