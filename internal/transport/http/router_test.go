package httpserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Skotchmaster/gigmarket/internal/handlers"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/payment"
	"github.com/Skotchmaster/gigmarket/internal/realtime"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/storage"
	"github.com/Skotchmaster/gigmarket/internal/testutil"
	"github.com/Skotchmaster/gigmarket/internal/tokens"
	"github.com/Skotchmaster/gigmarket/internal/upload"
)

const testWebhookSecret = "whsec_router"

func newServer(t *testing.T, webhookSecret string) *echo.Echo {
	t.Helper()

	gdb := testutil.InitTestDB(t)
	r := repo.New(gdb)

	codec, err := tokens.NewCodec([]byte("router-test-secret"))
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	uploader := &upload.Uploader{Store: store}
	prod := mykafka.NoopPublisher{}

	return New(&Deps{
		DB:             gdb,
		Logger:         logging.NewWithWriter(io.Discard, "error"),
		Gate:           &authmw.Gate{Tokens: codec, Store: r},
		AuthHandler:    &handlers.AuthHandler{Repo: r, Tokens: codec, Producer: prod},
		ProfileHandler: &handlers.ProfileHandler{Repo: r, Uploader: uploader},
		JobHandler:     &handlers.JobHandler{Repo: r, Uploader: uploader, Producer: prod},
		MessageHandler: &handlers.MessageHandler{Repo: r, Hub: realtime.NewHub()},
		PaymentHandler: &handlers.PaymentHandler{Verifier: payment.NewVerifier(webhookSecret), Producer: prod},
		SearchHandler:  &handlers.SearchHandler{},
		UploadDir:      dir,
	})
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, token string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func register(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "password123",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	e := newServer(t, "")
	assert.Equal(t, http.StatusOK, do(e, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
}

func TestGate(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "bob@demo.com")

	rec := do(e, jsonRequest(http.MethodGet, "/api/me", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"bob@demo.com"`)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"no header", "", "no token"},
		{"wrong scheme", "Basic " + token, "no token"},
		{"garbage", "Bearer garbage", "invalid token"},
		{"truncated", "Bearer " + token[:len(token)-3], "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := do(e, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newServer(t, "")
	first := register(t, e, "bob@demo.com")

	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "bob@demo.com", "password": "password123",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	require.Equal(t, http.StatusOK, do(e, jsonRequest(http.MethodPost, "/api/auth/logout", first, nil)).Code)

	rec = do(e, jsonRequest(http.MethodGet, "/api/me", first, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorBody(t, rec))

	assert.Equal(t, http.StatusOK, do(e, jsonRequest(http.MethodGet, "/api/me", login.Token, nil)).Code)
}

func TestLoginFailureIsUniform(t *testing.T) {
	e := newServer(t, "")
	register(t, e, "bob@demo.com")

	wrong := do(e, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@demo.com", "password": "x"}))
	unknown := do(e, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "eve@demo.com", "password": "x"}))

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestDuplicateRegistration(t *testing.T) {
	e := newServer(t, "")
	register(t, e, "bob@demo.com")

	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "bob@demo.com", "password": "another",
	}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", errorBody(t, rec))
}

func multipartRequest(t *testing.T, method, target, token, field, filename, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestProfileUpload(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "bob@demo.com")
	png := make([]byte, 512)
	copy(png, "\x89PNG\r\n\x1a\n")

	t.Run("unauthenticated upload never reaches storage", func(t *testing.T) {
		rec := do(e, multipartRequest(t, http.MethodPut, "/api/me", "", "avatar", "me.png", "image/png", png, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected type", func(t *testing.T) {
		rec := do(e, multipartRequest(t, http.MethodPut, "/api/me", token, "avatar", "me.gif", "image/gif", []byte("GIF89a...."), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid avatar type", errorBody(t, rec))
	})

	t.Run("accepted avatar is served", func(t *testing.T) {
		rec := do(e, multipartRequest(t, http.MethodPut, "/api/me", token, "avatar", "me.png", "image/png", png, map[string]string{"title": "Go Developer"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			User struct {
				AvatarURL string `json:"avatarUrl"`
				Title     string `json:"title"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Go Developer", resp.User.Title)
		require.True(t, strings.HasPrefix(resp.User.AvatarURL, "/uploads/avatar/"))

		got := do(e, httptest.NewRequest(http.MethodGet, resp.User.AvatarURL, nil))
		require.Equal(t, http.StatusOK, got.Code)
		assert.Equal(t, png, got.Body.Bytes())
	})
}

func TestJobsFlow(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "alice@demo.com")

	rec := do(e, multipartRequest(t, http.MethodPost, "/api/jobs", token, "attachment", "brief.txt", "text/plain",
		[]byte("requirements"), map[string]string{"title": "Build a React app"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Job struct {
			ID uint `json:"id"`
		} `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.Job.ID)

	rec = do(e, jsonRequest(http.MethodGet, fmt.Sprintf("/api/jobs/%d", created.Job.ID), "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filename":"brief.txt"`)

	rec = do(e, jsonRequest(http.MethodGet, "/api/jobs", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(handlers.HeaderTotalCount))
	assert.Contains(t, rec.Body.String(), `"jobs":[`)

	rec = do(e, jsonRequest(http.MethodGet, "/api/jobs/search?q=react", "", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoomReadRequiresLogin(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "bob@demo.com")

	rec := do(e, jsonRequest(http.MethodGet, "/api/messages/job-1", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no token", errorBody(t, rec))

	rec = do(e, jsonRequest(http.MethodGet, "/api/messages/job-1", token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":`)
}

func TestOversizedUploadBody(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "alice@demo.com")
	huge := make([]byte, 11<<20)

	tests := []struct {
		name   string
		method string
		target string
		field  string
		msg    string
	}{
		{"job attachment", http.MethodPost, "/api/jobs", "attachment", "Attachment too large"},
		{"profile files", http.MethodPut, "/api/me", "avatar", "Upload too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, multipartRequest(t, tt.method, tt.target, token, tt.field, "big.bin", "application/octet-stream",
				huge, map[string]string{"title": "Too big"}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
		})
	}

	rec := do(e, jsonRequest(http.MethodGet, "/api/jobs", "", nil))
	assert.Equal(t, "0", rec.Header().Get(handlers.HeaderTotalCount))

	rec = do(e, jsonRequest(http.MethodPost, "/api/messages", token, map[string]string{
		"room": "lobby", "text": strings.Repeat("x", len(huge)),
	}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func signedWebhook(secret, payload string) *http.Request {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(payment.SignatureHeader, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func TestWebhook(t *testing.T) {
	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

	t.Run("signed", func(t *testing.T) {
		e := newServer(t, testWebhookSecret)
		rec := do(e, signedWebhook(testWebhookSecret, payload))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(e, signedWebhook("whsec_forged", payload))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.HasPrefix(errorBody(t, rec), "Webhook Error: "))
	})

	t.Run("unsigned accepted without secret", func(t *testing.T) {
		e := newServer(t, "")
		rec := do(e, jsonRequest(http.MethodPost, "/api/payments/webhook", "", json.RawMessage(payload)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCheckoutNotConfigured(t *testing.T) {
	e := newServer(t, "")
	token := register(t, e, "bob@demo.com")

	rec := do(e, jsonRequest(http.MethodPost, "/api/payments/create-checkout", token, map[string]any{}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "payments are not configured", errorBody(t, rec))
}

func TestRoomStream(t *testing.T) {
	e := newServer(t, "")
	srv := httptest.NewServer(e)
	defer srv.Close()

	token := register(t, e, "bob@demo.com")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/messages/job-1/stream"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("gate applies to the upgrade", func(t *testing.T) {
		_, resp, err := websocket.Dial(ctx, wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{echo.HeaderAuthorization: []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	rec := do(e, jsonRequest(http.MethodPost, "/api/messages", token, map[string]string{"room": "job-1", "text": "hello"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ev struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Payload struct {
			Text string `json:"text"`
		} `json:"payload"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, realtime.EventMessageNew, ev.Type)
	assert.Equal(t, "job-1", ev.Room)
	assert.Equal(t, "hello", ev.Payload.Text)
}
