package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/storage"
	"github.com/Skotchmaster/gigmarket/internal/testutil"
	"github.com/Skotchmaster/gigmarket/internal/tokens"
	"github.com/Skotchmaster/gigmarket/internal/upload"
	"github.com/Skotchmaster/gigmarket/internal/validate"
)

var (
	pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	pdfHead = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

type published struct {
	Topic string
	Key   string
	Event any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *recorder) Close() error { return nil }

type env struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	codec    *tokens.Codec
	uploader *upload.Uploader
	dir      string
	events   *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()

	codec, err := tokens.NewCodec([]byte("test-jwt-secret"))
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	e := echo.New()
	e.Validator = validate.New()

	return &env{
		e:        e,
		repo:     repo.New(testutil.InitTestDB(t)),
		codec:    codec,
		uploader: &upload.Uploader{Store: store},
		dir:      dir,
		events:   &recorder{},
	}
}

func (v *env) jsonContext(method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return v.e.NewContext(req, rec), rec
}

type filePart struct {
	field, filename, contentType string
	content                      []byte
}

func (v *env) multipartContext(t *testing.T, method, target string, fields map[string]string, files ...filePart) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, val := range fields {
		require.NoError(t, w.WriteField(k, val))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return v.e.NewContext(req, rec), rec
}

// login attaches what the gate would have put on the context.
func (v *env) login(t *testing.T, c echo.Context, u *models.User) {
	t.Helper()
	raw, _, err := v.codec.Issue(u.ID)
	require.NoError(t, err)
	claims, err := v.codec.Verify(raw)
	require.NoError(t, err)
	c.Set(authmw.CtxPrincipal, u)
	c.Set(authmw.CtxClaims, claims)
}

func (v *env) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, PasswordHash: "x", Role: role}
	require.NoError(t, v.repo.CreateUserIfNotExists(context.Background(), u))
	return u
}

func requireAppError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.HTTPCode)
	if msg != "" {
		require.Equal(t, msg, appErr.Message)
	}
}

func padded(head []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, head)
	return out
}
