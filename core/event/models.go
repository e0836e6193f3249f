package event

import (
	"fmt"
	"time"
)

// Event is a campus event as reported by the intra API.
type Event struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        string    `json:"kind"`
	Location    string    `json:"location"`
	BeginAt     time.Time `json:"begin_at"` // UTC
	EndAt       time.Time `json:"end_at"`   // UTC
}

func (e Event) Duration() time.Duration {
	return e.EndAt.Sub(e.BeginAt)
}

// HumanDuration renders the duration the way the dashboard displays it.
func (e Event) HumanDuration() string {
	d := e.Duration()
	h, m := int(d.Hours()), int(d.Minutes())%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dmin", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dmin", m)
	}
}
