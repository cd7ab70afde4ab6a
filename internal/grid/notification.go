package grid

// NotificationPayload carries a decoded OSC 99 desktop notification, assembled
// from one or more chunked escape sequences by the underlying decoder.
type NotificationPayload struct {
	// ID identifies the notification for later close/update requests.
	ID string
	// Done is true once the final chunk of a multi-part payload has arrived.
	Done bool
	// PayloadType is "title", "body", or "?" for a capability query.
	PayloadType string
	// Encoding is the OSC 99 e= value ("" for plain text, "1" for base64).
	Encoding string
	// Actions lists the a= action tokens present on the escape sequence.
	Actions []string
	// TrackClose requests a close notification be sent back when dismissed.
	TrackClose bool
	// Timeout is the requested auto-dismiss timeout in milliseconds, 0 for none.
	Timeout int
	AppName string
	Type    string
	IconName string
	IconCacheID string
	Sound    string
	Urgency  int
	Occasion string
	// Data is the decoded payload bytes for this chunk.
	Data []byte
}

// NotificationProvider handles desktop notification requests (OSC 99).
// Notify returns a terminal response to write back (e.g. a capability query
// reply), or an empty string if no response is needed.
type NotificationProvider interface {
	Notify(payload *NotificationPayload) string
}

// NoopNotification discards all notification requests.
type NoopNotification struct{}

func (NoopNotification) Notify(payload *NotificationPayload) string { return "" }

var _ NotificationProvider = NoopNotification{}

// WithNotification sets the handler for desktop notification requests.
// Defaults to a no-op if not set.
func WithNotification(p NotificationProvider) Option {
	return func(t *Terminal) {
		t.notificationProvider = p
	}
}

// SetNotificationProvider sets the notification provider at runtime.
func (t *Terminal) SetNotificationProvider(p NotificationProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notificationProvider = p
}

// NotificationProvider returns the current notification provider.
func (t *Terminal) NotificationProvider() NotificationProvider {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notificationProvider
}

// DesktopNotification processes an OSC 99 desktop notification payload.
// This method name is required by the ansicode.Handler interface.
func (t *Terminal) DesktopNotification(payload *NotificationPayload) {
	if t.middleware != nil && t.middleware.DesktopNotification != nil {
		t.middleware.DesktopNotification(payload, t.desktopNotificationInternal)
		return
	}
	t.desktopNotificationInternal(payload)
}

func (t *Terminal) desktopNotificationInternal(payload *NotificationPayload) {
	t.mu.Lock()
	provider := t.notificationProvider
	responseProvider := t.responseProvider
	t.mu.Unlock()

	if provider == nil {
		return
	}

	reply := provider.Notify(payload)
	if reply == "" || responseProvider == nil {
		return
	}
	responseProvider.Write([]byte(reply))
}
