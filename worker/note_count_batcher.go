package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/store"
)

type NoteCountUpdate struct {
	UserId         string // for logging only
	UserProvider   string
	UserProviderId string
	Delta          int
}

// NoteCountBatcher folds note count changes per user and writes the sums
// to the store on every tick, when maxPendingUsers users are pending, and
// on shutdown.
type NoteCountBatcher struct {
	UpdateCh  chan NoteCountUpdate
	noteStore store.NoteStore
	interval  time.Duration
}

const maxPendingUsers = 100

func NewNoteCountBatcher(noteStore store.NoteStore, interval time.Duration) *NoteCountBatcher {
	return &NoteCountBatcher{
		UpdateCh:  make(chan NoteCountUpdate, 1024),
		noteStore: noteStore,
		interval:  interval,
	}
}

func (b *NoteCountBatcher) Add(update NoteCountUpdate) {
	b.UpdateCh <- update
}

func (b *NoteCountBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	type providerKeys struct {
		provider   string
		providerId string
	}
	// "provider#providerId" -> delta
	pending := make(map[string]int)
	keys := make(map[string]providerKeys)

	flush := func() {
		for key, delta := range pending {
			if delta == 0 {
				continue
			}
			pk := keys[key]
			go func(p, pid string, d int) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := b.noteStore.IncrementUserNoteCount(ctx, p, pid, d); err != nil {
					log.Error().Err(err).Str("provider", p).Str("providerId", pid).Int("delta", d).Msg("failed to update note count")
				}
			}(pk.provider, pk.providerId, delta)
		}
		pending = make(map[string]int)
		keys = make(map[string]providerKeys)
	}

	add := func(update NoteCountUpdate) {
		if update.UserProvider == "" || update.UserProviderId == "" {
			return
		}
		key := update.UserProvider + "#" + update.UserProviderId
		pending[key] += update.Delta
		keys[key] = providerKeys{provider: update.UserProvider, providerId: update.UserProviderId}
	}

	for {
		select {
		case update := <-b.UpdateCh:
			add(update)
			if len(pending) >= maxPendingUsers {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			// Take what is already queued into the final flush.
		drain:
			for {
				select {
				case update := <-b.UpdateCh:
					add(update)
				default:
					break drain
				}
			}
			flush()
			return
		}
	}
}
