package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// dispatcher runs handle for updates of one sender strictly in arrival
// order while different senders proceed concurrently. A sender's worker
// exits as soon as its queue drains.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
	handle func(tgbotapi.Update)
}

func newDispatcher(handle func(tgbotapi.Update)) *dispatcher {
	return &dispatcher{
		queues: make(map[int64][]tgbotapi.Update),
		handle: handle,
	}
}

func (d *dispatcher) dispatch(u tgbotapi.Update) {
	key := senderKey(u)

	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[key]; ok {
		d.queues[key] = append(q, u)
		return
	}
	d.queues[key] = []tgbotapi.Update{u}
	d.wg.Add(1)
	go d.drain(key)
}

func (d *dispatcher) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		u := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.handle(u)
	}
}

// wait blocks until every queued update has been handled.
func (d *dispatcher) wait() {
	d.wg.Wait()
}

func senderKey(u tgbotapi.Update) int64 {
	switch {
	case u.Message == nil:
		return 0
	case u.Message.From != nil:
		return u.Message.From.ID
	case u.Message.Chat != nil:
		return u.Message.Chat.ID
	default:
		return 0
	}
}
