// Package signals defines the outputs the controllers emit towards the
// presentation layer: user-facing notifications and logical navigation.
package signals

import "sync"

type Severity int

const (
	SeverityNormal Severity = iota
	SeverityDestructive
)

func (s Severity) String() string {
	if s == SeverityDestructive {
		return "destructive"
	}
	return "normal"
}

type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

type Place int

const (
	PlaceLanding Place = iota
	PlaceDashboard
	PlaceEditor
)

func (p Place) String() string {
	switch p {
	case PlaceDashboard:
		return "dashboard"
	case PlaceEditor:
		return "editor"
	default:
		return "landing"
	}
}

// Destination is a logical place. NoteId is only meaningful for the editor;
// empty means a new note.
type Destination struct {
	Place  Place
	NoteId string
}

func Dashboard() Destination { return Destination{Place: PlaceDashboard} }
func Landing() Destination { return Destination{Place: PlaceLanding} }
func Editor(noteId string) Destination {
	return Destination{Place: PlaceEditor, NoteId: noteId}
}

type Notifier interface {
	Notify(n Notification)
}

type Navigator interface {
	Navigate(d Destination)
}

type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type NavigatorFunc func(d Destination)

func (f NavigatorFunc) Navigate(d Destination) { f(d) }

// Discard drops every signal.
var Discard = discard{}

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Navigate(Destination) {}

// Recorder keeps every signal in emission order. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	destinations  []Destination
	order         []string
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	r.order = append(r.order, "notify:"+n.Title)
}

func (r *Recorder) Navigate(d Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destinations = append(r.destinations, d)
	r.order = append(r.order, "navigate:"+d.Place.String())
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

func (r *Recorder) Destinations() []Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Destination(nil), r.destinations...)
}

// Order lists both kinds of signal as "notify:<title>" and
// "navigate:<place>" in the order they were emitted.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return Notification{}, false
	}
	return r.notifications[len(r.notifications)-1], true
}
