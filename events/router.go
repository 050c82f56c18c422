package events

import (
	"fmt"

	"github.com/hannahhoward/go-pubsub"
)

// SubscriberFn receives every published event; callers type-switch on the
// concrete variant to react only to what they care about.
type SubscriberFn func(Event)

// Unsubscribe detaches a previously registered subscriber.
type Unsubscribe func()

// Router fans events out to subscribers. It is deliberately dumb: it does
// not serialize reactions (each subscriber runs on the publishing
// goroutine) and it does not retry failed dispatch — a subscriber panic or error here is a
// programming bug, not a transient condition.
type Router struct {
	ps *pubsub.PubSub
}

// NewRouter constructs an empty event router.
func NewRouter() *Router {
	ps := pubsub.New(dispatch)
	return &Router{ps: ps}
}

func dispatch(event pubsub.Event, subFn pubsub.SubscriberFn) error {
	evt, ok := event.(Event)
	if !ok {
		return fmt.Errorf("events: publish called with non-Event value %T", event)
	}
	sub, ok := subFn.(SubscriberFn)
	if !ok {
		return fmt.Errorf("events: subscribe called with non-SubscriberFn value %T", subFn)
	}
	sub(evt)
	return nil
}

// Subscribe registers fn to be called with every published event, in
// publish order. The returned Unsubscribe detaches it.
func (r *Router) Subscribe(fn SubscriberFn) Unsubscribe {
	return Unsubscribe(r.ps.Subscribe(fn))
}

// Publish fans evt out to every current subscriber.
func (r *Router) Publish(evt Event) {
	if err := r.ps.Publish(evt); err != nil {
		// Subscribe/dispatch only fail on a type mismatch between this
		// package's own Event/SubscriberFn, which would be a bug here, not
		// at a call site; there's nothing a caller could do about it.
		panic(err)
	}
}
