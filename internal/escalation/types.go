package escalation

import "time"

// Status of an escalation. Transitions only pending -> resolved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// Category is the closed set of escalation reasons.
type Category string

const (
	CategorySalary    Category = "salary"
	CategoryLegal     Category = "legal"
	CategoryTechnical Category = "technical"
	CategoryPersonal  Category = "personal"
	CategoryOther     Category = "other"
)

// ParseCategory normalizes free-form oracle output; unknown values map to other.
func ParseCategory(s string) Category {
	switch c := Category(s); c {
	case CategorySalary, CategoryLegal, CategoryTechnical, CategoryPersonal, CategoryOther:
		return c
	}
	return CategoryOther
}

// Source records which screening stage raised the escalation.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceGate    Source = "gate"
)

// Resolution is the human's answer and its professionalized rewrite.
type Resolution struct {
	HumanText       string `json:"human_text"`
	TransformedText string `json:"transformed_text"`
}

// Escalation is a value snapshot; mutating it does not affect the store.
type Escalation struct {
	ID              string      `json:"id"`
	Status          Status      `json:"status"`
	OriginalMessage string      `json:"original_message"`
	Sender          string      `json:"sender,omitempty"`
	Reason          string      `json:"reason"`
	Category        Category    `json:"category"`
	Source          Source      `json:"source"`
	ExternalRef     string      `json:"external_ref,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Resolution      *Resolution `json:"resolution,omitempty"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
}

// NewEscalation is the input to Store.Create.
type NewEscalation struct {
	OriginalMessage string
	Sender          string
	Reason          string
	Category        Category
	Source          Source
}

// EventType names a lifecycle transition reported to observers.
type EventType string

const (
	EventCreated  EventType = "created"
	EventLinked   EventType = "linked"
	EventResolved EventType = "resolved"
)

// Event is a lifecycle notification carrying a snapshot taken under the lock.
type Event struct {
	Type       EventType
	Escalation Escalation
	At         time.Time
}

// Observer receives lifecycle events. It is called outside the store lock
// and must not block for long.
type Observer interface {
	OnEscalationEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEscalationEvent(e Event) { f(e) }

// Stats summarizes the store contents.
type Stats struct {
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}
