package session

import "sync"

// NoticeKind identifies a user-facing notification.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	// NoticeSessionExpired: the credential was rejected and discarded.
	NoticeSessionExpired
	// NoticeServerUnreachable: the credential is kept; retry later.
	NoticeServerUnreachable
	// NoticeRejected: the server refused for another reason; Message is
	// its text.
	NoticeRejected
	// NoticeCatalogUnreachable: the doctor list could not be fetched.
	NoticeCatalogUnreachable
	// NoticeCatalogFailed: the server answered the listing with an error.
	NoticeCatalogFailed
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSessionExpired:
		return "session_expired"
	case NoticeServerUnreachable:
		return "server_unreachable"
	case NoticeRejected:
		return "rejected"
	case NoticeCatalogUnreachable:
		return "catalog_unreachable"
	case NoticeCatalogFailed:
		return "catalog_failed"
	default:
		return "none"
	}
}

const (
	msgSessionExpired     = "Session expired. Please login again."
	msgServerUnreachable  = "Cannot connect to server. Please check if the backend is running."
	msgCatalogUnreachable = "Cannot connect to backend server. Please ensure the server is running."
)

// Notice is a message meant for the user. Notices are de-duplicated:
// one is only raised when its kind differs from the last one raised by
// the same component, and a success resets that memory.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Event is delivered to session observers on every state change.
// Notice is nil when the change warrants no user-facing message.
type Event struct {
	Snapshot Snapshot
	Notice   *Notice
}

// dedup remembers the last raised notice kind.
type dedup struct {
	last NoticeKind
}

// raise returns n, or nil if a notice of the same kind was the last one.
func (d *dedup) raise(n Notice) *Notice {
	if d.last == n.Kind {
		return nil
	}
	d.last = n.Kind
	return &n
}

func (d *dedup) reset() {
	d.last = NoticeNone
}

// hub fans values out to subscribers in registration order.
type hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
	ids  []int
}

func (h *hub[T]) subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	h.ids = append(h.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			for i, v := range h.ids {
				if v == id {
					h.ids = append(h.ids[:i], h.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.ids))
	for _, id := range h.ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
