package telegram

import (
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateFrom(from int64, id int) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: id, Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from},
	}}
}

func TestDispatcher_SerialPerSender(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[int64][]int{}
	)
	d := newDispatcher(func(u tgbotapi.Update) {
		mu.Lock()
		defer mu.Unlock()
		seen[u.Message.From.ID] = append(seen[u.Message.From.ID], u.UpdateID)
	})

	var want1, want2 []int
	for i := range 100 {
		d.dispatch(updateFrom(1, i))
		want1 = append(want1, i)
		d.dispatch(updateFrom(2, 1000+i))
		want2 = append(want2, 1000+i)
	}
	d.wait()

	assert.Equal(t, want1, seen[1])
	assert.Equal(t, want2, seen[2])
	assert.Empty(t, d.queues, "idle senders leave no queue behind")
}

func TestDispatcher_SendersRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	handled := make(chan int64, 2)

	d := newDispatcher(func(u tgbotapi.Update) {
		if u.Message.From.ID == 1 {
			<-release
		}
		handled <- u.Message.From.ID
	})

	d.dispatch(updateFrom(1, 1))
	d.dispatch(updateFrom(2, 2))

	select {
	case id := <-handled:
		require.Equal(t, int64(2), id, "a blocked sender must not hold up others")
	case <-time.After(2 * time.Second):
		t.Fatal("second sender was not handled")
	}

	close(release)
	d.wait()
	assert.Equal(t, int64(1), <-handled)
}

func TestSenderKey(t *testing.T) {
	assert.Equal(t, int64(0), senderKey(tgbotapi.Update{}))
	assert.Equal(t, int64(7), senderKey(updateFrom(7, 1)))
	assert.Equal(t, int64(-100), senderKey(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -100}}}))
}
