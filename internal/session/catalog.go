package session

import (
	"context"
	"sync"

	"prescripto-auth/internal/catalog"
	"prescripto-auth/internal/client"
	"prescripto-auth/internal/logger"
)

// DoctorLister fetches the public doctor list.
type DoctorLister interface {
	Doctors(ctx context.Context) ([]catalog.Doctor, error)
}

// Catalog caches the doctor list. It needs no credential and never
// touches session state: a failed refresh empties the list and raises a
// notice, nothing more.
type Catalog struct {
	api DoctorLister

	mu      sync.Mutex
	doctors []catalog.Doctor
	notices dedup

	notify hub[Notice]
}

func NewCatalog(api DoctorLister) *Catalog {
	return &Catalog{api: api, doctors: []catalog.Doctor{}}
}

// Subscribe registers fn for catalog notices.
func (c *Catalog) Subscribe(fn func(Notice)) (unsubscribe func()) {
	return c.notify.subscribe(fn)
}

// Refresh reloads the list. On failure the list becomes empty and the
// classified error is returned.
func (c *Catalog) Refresh(ctx context.Context) error {
	doctors, err := c.api.Doctors(ctx)

	c.mu.Lock()
	if err == nil {
		c.doctors = doctors
		c.notices.reset()
		c.mu.Unlock()
		logger.Debug("doctors loaded", map[string]any{
			"count": len(doctors),
		})
		return nil
	}

	c.doctors = []catalog.Doctor{}

	var n Notice
	switch r := client.Classify(err).(type) {
	case client.Rejected:
		n = Notice{Kind: NoticeCatalogFailed, Message: r.Message}
	default:
		n = Notice{Kind: NoticeCatalogUnreachable, Message: msgCatalogUnreachable}
	}
	notice := c.notices.raise(n)
	c.mu.Unlock()

	logger.Warn("doctor list failed", map[string]any{
		"error": err.Error(),
	})
	if notice != nil {
		c.notify.publish(*notice)
	}
	return err
}

// Doctors returns a copy of the cached list.
func (c *Catalog) Doctors() []catalog.Doctor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Doctor, len(c.doctors))
	copy(out, c.doctors)
	return out
}

// Filter returns the cached doctors with the given speciality, or all
// of them when speciality is empty.
func (c *Catalog) Filter(speciality string) []catalog.Doctor {
	all := c.Doctors()
	if speciality == "" {
		return all
	}
	out := make([]catalog.Doctor, 0, len(all))
	for _, d := range all {
		if d.Speciality == speciality {
			out = append(out, d)
		}
	}
	return out
}
