package db

import (
	"context"
	"time"

	"github.com/lib/pq"

	"carebook-chatbot/pkg/logging"
)

// BookingChannel is the Postgres NOTIFY channel carrying patient ids whose
// bookings changed. The booking flow (external to this service) is expected
// to NOTIFY on it after every write.
const BookingChannel = "booking_updates"

// Notifier listens on the booking channel so memoized upcoming-booking flags
// can be invalidated as soon as a booking lands.
type Notifier struct {
	listener *pq.Listener
	logger   *logging.Logger
}

// NewNotifier opens a dedicated listener connection. connStr is the same DSN
// used for the main pool.
func NewNotifier(connStr string, logger *logging.Logger) (*Notifier, error) {
	if logger == nil {
		logger = logging.Default()
	}
	l := pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("booking listener event", "event", int(ev), "error", err)
		}
	})
	if err := l.Listen(BookingChannel); err != nil {
		_ = l.Close()
		return nil, err
	}
	return &Notifier{listener: l, logger: logger}, nil
}

// Run yields patient ids from booking notifications until the context ends.
// The returned channel is closed on shutdown.
func (n *Notifier) Run(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case note, ok := <-n.listener.Notify:
				if !ok {
					return
				}
				if note == nil {
					// Reconnect marker from the driver.
					continue
				}
				select {
				case out <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				// Keep the connection verified during quiet periods.
				go n.listener.Ping()
			}
		}
	}()
	return out
}

// Close tears down the listener connection.
func (n *Notifier) Close() error {
	return n.listener.Close()
}
