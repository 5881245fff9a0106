package booking

import "sync"

type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

type Status struct {
	Kind    StatusKind `json:"type,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (s Status) IsNone() bool {
	return s.Kind == StatusNone
}

// Snapshot is a point-in-time copy of a FormState.
type Snapshot struct {
	ID      string `json:"id"`
	Draft   Draft  `json:"draft"`
	Sending bool   `json:"sending"`
	Status  Status `json:"status"`
}

// FormState holds one session's draft booking together with the transient
// UI state. It never validates; that is left to Pipeline.
type FormState struct {
	mu        sync.Mutex
	id        string
	draft     Draft
	sending   bool
	status    Status
	observers []func(Snapshot)
}

func NewFormState(id string) *FormState {
	return &FormState{id: id, draft: NewDraft()}
}

func RestoreFormState(snap Snapshot) *FormState {
	return &FormState{
		id:      snap.ID,
		draft:   snap.Draft,
		sending: snap.Sending,
		status:  snap.Status,
	}
}

func (f *FormState) ID() string {
	return f.id
}

func (f *FormState) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *FormState) Sending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sending
}

func (f *FormState) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *FormState) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Observe registers fn to be called synchronously after every mutation.
func (f *FormState) Observe(fn func(Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// SetField replaces exactly one draft attribute.
func (f *FormState) SetField(name, value string) error {
	return f.mutate(func() error {
		return f.draft.set(name, value)
	})
}

func (f *FormState) setStatus(status Status) {
	_ = f.mutate(func() error {
		f.status = status
		return nil
	})
}

func (f *FormState) reset() {
	_ = f.mutate(func() error {
		f.draft = NewDraft()
		return nil
	})
}

// begin marks the form as sending and clears the status. The returned
// release must run on every exit path.
func (f *FormState) begin() (release func(), ok bool) {
	f.mu.Lock()
	if f.sending {
		f.mu.Unlock()
		return nil, false
	}
	f.sending = true
	f.status = Status{}
	snap, observers := f.snapshotLocked(), f.observers
	f.mu.Unlock()

	notify(observers, snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = f.mutate(func() error {
				f.sending = false
				return nil
			})
		})
	}, true
}

func (f *FormState) mutate(fn func() error) error {
	f.mu.Lock()
	if err := fn(); err != nil {
		f.mu.Unlock()
		return err
	}
	snap, observers := f.snapshotLocked(), f.observers
	f.mu.Unlock()

	notify(observers, snap)
	return nil
}

func (f *FormState) snapshotLocked() Snapshot {
	return Snapshot{ID: f.id, Draft: f.draft, Sending: f.sending, Status: f.status}
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
