package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeSender) Send(ctx context.Context, subject, body string) error {
	f.calls++
	f.subject = subject
	f.body = body
	return f.err
}

func TestNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("BelowHorizonSends", func(t *testing.T) {
		sender := &fakeSender{}
		n := &Notifier{Sender: sender, NoticeDays: 14}

		sent, err := n.Notify(ctx, 92, 1840, 5)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Equal(t, 1, sender.calls)
		assert.Equal(t, Subject, sender.subject)
		assert.Equal(t, "SENSiT is reporting:\n    * level at 92%\n    * level at 1840 litres\n\nForecasting empty in 5 days\n", sender.body)
	})

	t.Run("AtHorizonStaysQuiet", func(t *testing.T) {
		sender := &fakeSender{}
		n := &Notifier{Sender: sender, NoticeDays: 14}

		sent, err := n.Notify(ctx, 92, 1840, 14)
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Zero(t, sender.calls, "notice is strictly below the horizon")
	})

	t.Run("AboveHorizonStaysQuiet", func(t *testing.T) {
		sender := &fakeSender{}
		n := &Notifier{Sender: sender, NoticeDays: 14}

		sent, err := n.Notify(ctx, 92, 1840, 62)
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Zero(t, sender.calls)
	})

	t.Run("SendFailure", func(t *testing.T) {
		sendErr := errors.New("smtp down")
		sender := &fakeSender{err: sendErr}
		n := &Notifier{Sender: sender, NoticeDays: 14}

		sent, err := n.Notify(ctx, 92, 1840, 5)
		require.ErrorIs(t, err, sendErr)
		assert.False(t, sent)
	})
}

func TestMessage(t *testing.T) {
	// Fractional percentages keep their precision without trailing zeros.
	body := Message(92.5, 1840, 5)
	assert.Contains(t, body, "level at 92.5%")

	body = Message(50, 1000, 3)
	assert.Contains(t, body, "level at 50%")
	assert.Contains(t, body, "Forecasting empty in 3 days")
}
