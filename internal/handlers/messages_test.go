package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/realtime"
)

func TestMessages(t *testing.T) {
	v := newEnv(t)
	u := v.createUser(t, "bob@demo.com", models.RoleFreelancer)
	h := &MessageHandler{Repo: v.repo}

	for _, text := range []string{"hi", "hello"} {
		c, rec := v.jsonContext(http.MethodPost, "/api/messages", map[string]any{
			"room": "job-1", "text": text, "senderId": 42,
		})
		v.login(t, c, u)
		require.NoError(t, h.PostMessage(c))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	c, rec := v.jsonContext(http.MethodGet, "/api/messages/job-1", nil)
	c.SetParamNames("room")
	c.SetParamValues("job-1")
	require.NoError(t, h.GetRoom(c))

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	msgs := resp.Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "hello", msgs[1].Text)
	assert.Equal(t, u.ID, msgs[0].SenderID)

	c, _ = v.jsonContext(http.MethodPost, "/api/messages", map[string]any{"room": "job-1"})
	v.login(t, c, u)
	requireAppError(t, h.PostMessage(c), http.StatusBadRequest, "")
}

func TestPostMessage_PublishesToRoom(t *testing.T) {
	v := newEnv(t)
	u := v.createUser(t, "bob@demo.com", models.RoleFreelancer)
	hub := realtime.NewHub()
	sub := hub.Subscribe("job-1")
	defer sub.Close()
	h := &MessageHandler{Repo: v.repo, Hub: hub}

	c, _ := v.jsonContext(http.MethodPost, "/api/messages", map[string]any{"room": "job-1", "text": "hi"})
	v.login(t, c, u)
	require.NoError(t, h.PostMessage(c))

	select {
	case data := <-sub.C:
		assert.Contains(t, string(data), `"text":"hi"`)
	default:
		t.Fatal("no event published")
	}
}

func TestStreamRoom_NotConfigured(t *testing.T) {
	v := newEnv(t)
	c, _ := v.jsonContext(http.MethodGet, "/api/messages/job-1/stream", nil)
	c.SetParamNames("room")
	c.SetParamValues("job-1")
	assert.ErrorIs(t, (&MessageHandler{Repo: v.repo}).StreamRoom(c), apperrors.ErrUnavailable)
}
