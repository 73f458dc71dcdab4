package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	at   []time.Time
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.sent = append(f.sent, msg)
	f.at = append(f.at, time.Now())
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestNotify(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, -100123, 30*time.Millisecond, nil)

	require.NoError(t, n.Notify(context.Background(), "Daily report 2026-03-07"))
	require.NoError(t, n.Notify(context.Background(), "second"))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(-100123), sender.sent[0].ChatID)
	assert.Equal(t, "Daily report 2026-03-07", sender.sent[0].Text)
	assert.GreaterOrEqual(t, sender.at[1].Sub(sender.at[0]), 30*time.Millisecond)
}

func TestNotify_TruncatesLongText(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 1, time.Millisecond, nil)

	require.NoError(t, n.Notify(context.Background(), strings.Repeat("x", 5000)))
	assert.Len(t, []rune(sender.sent[0].Text), maxMessageRunes+3)
}

func TestNotify_Errors(t *testing.T) {
	var nilNotifier *Notifier
	assert.ErrorIs(t, nilNotifier.Notify(context.Background(), "x"), usecase.ErrDependencyUnavailable)

	n := NewNotifier(&fakeSender{err: errors.New("bot blocked")}, 1, time.Millisecond, nil)
	err := n.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot blocked")
}
