package event

// Handler reacts to the telemetry events it knows and ignores the others.
type Handler interface {
	Handle(event Event)
}

// Chain hands each event to every handler, in order.
type Chain []Handler

func (c Chain) Handle(event Event) {
	for _, h := range c {
		h.Handle(event)
	}
}
