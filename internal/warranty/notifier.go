package warranty

import "warranty-backend/internal/model"

// Event is a lifecycle transition worth telling the customer about.
type Event string

const (
	EventActivated Event = "activated"
	EventExpiring  Event = "expiring"
	EventExpired   Event = "expired"
)

// Dispatcher delivers lifecycle notifications for a warranty record.
// Delivery is best-effort: a failed send is logged and never rolls
// back the state transition that triggered it.
type Dispatcher interface {
	Dispatch(rec model.WarrantyRecord, event Event)
}

// Discard is a Dispatcher that drops every event. Used when
// notifications are disabled and in tests.
type Discard struct{}

func (Discard) Dispatch(model.WarrantyRecord, Event) {}
