// Package notes holds the signed-in user's notes in memory. Dashboard and
// editor share one Store and learn about each other's mutations through
// Subscribe.
package notes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/validation"
)

type Input struct {
	Title   string
	Content string
}

type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "reset"
	}
}

// Change is pushed to subscribers after every mutation. NoteId is empty for
// ChangeReset.
type Change struct {
	Kind   ChangeKind
	NoteId string
}

// Gate reports whether there is a signed-in session.
type Gate interface {
	Authenticated() bool
}

// Backend persists the mutations. Create and Update return the note as
// stored, which becomes the in-memory copy.
type Backend interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, title, content string) (models.Note, error)
	UpdateNote(ctx context.Context, id, title, content string) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

type Option func(*Store)

func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

func WithGate(g Gate) Option {
	return func(s *Store) { s.gate = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type subscriber struct {
	id int
	fn func(Change)
}

// Store lists notes in insertion order. Updating a note keeps its position.
type Store struct {
	mu          sync.Mutex
	order       []string
	byId        map[string]models.Note
	subscribers []subscriber
	nextSubId   int
	backend     Backend
	gate        Gate
	now         func() time.Time
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		byId: make(map[string]models.Note),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) checkGate() error {
	if s.gate != nil && !s.gate.Authenticated() {
		return ErrNoSession
	}
	return nil
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs synchronously after the mutation is applied and
// must not call back into a mutating Store method.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubId++
	id := s.nextSubId
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) emit(c Change) {
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subscribers...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(c)
	}
}

func (s *Store) List() ([]models.Note, error) {
	if err := s.checkGate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Note, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.byId[id])
	}
	return list, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Store) Get(id string) (models.Note, error) {
	if err := s.checkGate(); err != nil {
		return models.Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.byId[id]
	if !ok {
		return models.Note{}, &NotFoundError{Id: id}
	}
	return note, nil
}

func (s *Store) Create(ctx context.Context, in Input) (models.Note, error) {
	if err := s.checkGate(); err != nil {
		return models.Note{}, err
	}
	title := validation.NoteTitle(in.Title)

	var note models.Note
	if s.backend != nil {
		created, err := s.backend.CreateNote(ctx, title, in.Content)
		if err != nil {
			return models.Note{}, &StoreUnavailableError{Err: err}
		}
		note = created
		note.Snippet = Snippet(note.Content)
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return models.Note{}, err
		}
		note = models.Note{
			Id:          id.String(),
			Title:       title,
			Content:     in.Content,
			Snippet:     Snippet(in.Content),
			LastUpdated: s.now(),
		}
	}

	s.mu.Lock()
	if _, exists := s.byId[note.Id]; !exists {
		s.order = append(s.order, note.Id)
	}
	s.byId[note.Id] = note
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeCreated, NoteId: note.Id})
	return note, nil
}

func (s *Store) Update(ctx context.Context, id, title, content string) (models.Note, error) {
	if err := s.checkGate(); err != nil {
		return models.Note{}, err
	}

	s.mu.Lock()
	note, ok := s.byId[id]
	s.mu.Unlock()
	if !ok {
		return models.Note{}, &NotFoundError{Id: id}
	}

	note.Title = validation.NoteTitle(title)
	note.Content = content
	note.Snippet = Snippet(content)
	note.LastUpdated = s.now()

	if s.backend != nil {
		stored, err := s.backend.UpdateNote(ctx, id, note.Title, content)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.Note{}, err
			}
			return models.Note{}, &StoreUnavailableError{Err: err}
		}
		stored.Snippet = Snippet(stored.Content)
		note = stored
	}

	s.mu.Lock()
	if _, ok := s.byId[id]; !ok {
		// Deleted while the backend call was in flight.
		s.mu.Unlock()
		return models.Note{}, &NotFoundError{Id: id}
	}
	s.byId[id] = note
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeUpdated, NoteId: id})
	return note, nil
}

// Delete removes the note. Deleting an id that is not present succeeds
// without a change notification.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.checkGate(); err != nil {
		return err
	}

	s.mu.Lock()
	_, ok := s.byId[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if s.backend != nil {
		if err := s.backend.DeleteNote(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return &StoreUnavailableError{Err: err}
		}
	}

	s.mu.Lock()
	if _, ok := s.byId[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.byId, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeDeleted, NoteId: id})
	return nil
}

// Seed inserts notes as given, keeping their ids and timestamps. Snippets
// are derived from content when content is present.
func (s *Store) Seed(seed ...models.Note) {
	s.mu.Lock()
	for _, note := range seed {
		if note.Content != "" {
			note.Snippet = Snippet(note.Content)
		}
		if _, exists := s.byId[note.Id]; !exists {
			s.order = append(s.order, note.Id)
		}
		s.byId[note.Id] = note
	}
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeReset})
}

// Hydrate replaces the contents with the backend's list.
func (s *Store) Hydrate(ctx context.Context) error {
	if err := s.checkGate(); err != nil {
		return err
	}
	if s.backend == nil {
		return nil
	}
	list, err := s.backend.ListNotes(ctx)
	if err != nil {
		return &StoreUnavailableError{Err: err}
	}

	s.mu.Lock()
	s.order = s.order[:0]
	clear(s.byId)
	for _, note := range list {
		note.Snippet = Snippet(note.Content)
		if _, exists := s.byId[note.Id]; !exists {
			s.order = append(s.order, note.Id)
		}
		s.byId[note.Id] = note
	}
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeReset})
	return nil
}

// Clear drops every note, e.g. when the session ends.
func (s *Store) Clear() {
	s.mu.Lock()
	s.order = nil
	clear(s.byId)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeReset})
}
