package webhook

// EventTypeWildcard is a special filter that matches all event types
const EventTypeWildcard = "*"

// Subscription is one webhook endpoint with its delivery secret and the
// event types it wants.
type Subscription struct {
	// URL receives POSTed events
	URL string
	// Secret signs each delivery
	Secret string
	// EventTypes filters deliveries; empty or wildcard means everything
	EventTypes []string
}

// Matches reports whether the subscription wants the given event type.
func (s Subscription) Matches(eventType string) bool {
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, t := range s.EventTypes {
		if t == EventTypeWildcard || t == eventType {
			return true
		}
	}
	return false
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the delivery was successful
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint
	StatusCode int
	// Error contains error details if delivery failed
	Error string
}
