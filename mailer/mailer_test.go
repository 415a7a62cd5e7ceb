package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResend(t *testing.T, h http.HandlerFunc) *Resend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := NewResend("re_test", "bills@example.com")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	m.Client.BaseURL = base
	return m
}

func TestResendSend(t *testing.T) {
	var got map[string]interface{}
	m := testResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	})

	err := m.Send(context.Background(), Message{
		To:          "asha@example.com",
		Subject:     "Your invoice",
		HTML:        "<p>Thanks</p>",
		Attachments: []Attachment{{Filename: "invoice.pdf", Content: []byte("%PDF")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "bills@example.com", got["from"])
	assert.Equal(t, []interface{}{"asha@example.com"}, got["to"])
	assert.Equal(t, "Your invoice", got["subject"])
	attachments, ok := got["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, "invoice.pdf", attachments[0].(map[string]interface{})["filename"])
}

func TestResendErrorStatus(t *testing.T) {
	m := testResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	})
	err := m.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
}

func TestSendRequiresRecipient(t *testing.T) {
	m := NewResend("re_test", "bills@example.com")
	assert.Error(t, m.Send(context.Background(), Message{}))
}

func TestNewFallsBackToLog(t *testing.T) {
	assert.IsType(t, Log{}, New("", "x"))
	assert.IsType(t, &Resend{}, New("key", "x"))
	assert.NoError(t, Log{}.Send(context.Background(), Message{To: "a@example.com"}))
}
