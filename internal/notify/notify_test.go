package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/internal/domain/account"
)

func TestActivationMessage(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := account.Activation{
		Email:     "ada@example.com",
		FirstName: "Ada",
		Token:     "tok",
		Link:      "https://shop.example.com/api/accounts/activate/tok",
	}

	msg, err := activationMessage(a, now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, MessageTypeActivation, msg.Type)
	assert.Equal(t, now, msg.Timestamp)
	assert.NotEmpty(t, msg.MessageId)

	var got account.Activation
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, a, got)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	err := LogNotifier{}.SendActivation(ctx, account.Activation{
		Email: "ada@example.com",
		Link:  "https://shop.example.com/api/accounts/activate/tok",
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Activation email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ada@example.com", entries[0].ContextMap()["email"])
}
