package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/server/config"
)

type recordingBot struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (b *recordingBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *recordingBot) SendMediaGroup(tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	return nil, nil
}

func (b *recordingBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.BotToken = "test"
	c.AdminIDs = []int64{7}
	c.DatabaseDSN = "file:app_" + t.Name() + "?mode=memory"
	c.HealthAddr = ""
	c.LogLevel = "error"
	return c
}

func stubBot(t *testing.T, conn *botConn, err error) {
	t.Helper()
	orig := startBot
	t.Cleanup(func() { startBot = orig })
	startBot = func(context.Context, *config.Config) (*botConn, error) { return conn, err }
}

func TestNewApp_InvalidPolicy(t *testing.T) {
	c := testConfig(t)
	c.BatchPolicy = "sometimes"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestNewApp_UnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDriver = "mysql"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestApp_RunEndToEnd(t *testing.T) {
	c := testConfig(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	bot := &recordingBot{}
	updates := make(chan tgbotapi.Update)
	stubBot(t, &botConn{api: bot, username: "drop_bot", updates: updates}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	msg := func(text string) *tgbotapi.Message {
		m := &tgbotapi.Message{
			From: &tgbotapi.User{ID: 7},
			Chat: &tgbotapi.Chat{ID: 70},
			Text: text,
		}
		if text != "" {
			m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
		}
		return m
	}

	upload := msg("")
	upload.Video = &tgbotapi.Video{FileID: "vid"}
	updates <- tgbotapi.Update{UpdateID: 1, Message: upload}

	require.Eventually(t, func() bool { return len(bot.texts()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, app.service.Pending(7))

	updates <- tgbotapi.Update{UpdateID: 2, Message: msg("/done")}

	require.Eventually(t, func() bool { return len(bot.texts()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, bot.texts()[1], "https://t.me/drop_bot?start=")
	assert.Zero(t, app.service.Pending(7))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunBotFailure(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	stubBot(t, nil, errors.New("unauthorized"))

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
