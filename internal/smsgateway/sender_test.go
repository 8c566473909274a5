package smsgateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sally-https/book-api-v2/internal/config"
	"github.com/sally-https/book-api-v2/internal/smsgateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	t.Run("PassesCredentialsAndMessage", func(t *testing.T) {
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			got = map[string]string{
				"username":  q.Get("username"),
				"password":  q.Get("password"),
				"sender":    q.Get("sender"),
				"recipient": q.Get("recipient"),
				"message":   q.Get("message"),
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		sender := smsgateway.NewSender(config.SMSConfig{
			URL:      server.URL,
			Username: "lib-user",
			Password: "lib-pass",
			Sender:   "Library",
		})

		err := sender.Send(context.Background(), "+420123456789", "your book is due soon")
		require.NoError(t, err)

		assert.Equal(t, "lib-user", got["username"])
		assert.Equal(t, "lib-pass", got["password"])
		assert.Equal(t, "Library", got["sender"])
		assert.Equal(t, "+420123456789", got["recipient"])
		assert.Equal(t, "your book is due soon", got["message"])
	})

	t.Run("GatewayError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		}))
		defer server.Close()

		sender := smsgateway.NewSender(config.SMSConfig{URL: server.URL})

		err := sender.Send(context.Background(), "+420123456789", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}
