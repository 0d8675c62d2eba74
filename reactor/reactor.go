// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness poller interface.

package reactor

// EventReactor is a level-triggered readiness poller with a wakeup channel.
// Wait is called from one goroutine only; the other methods are safe for
// concurrent use.
type EventReactor interface {
	// Register starts watching fd for readability.
	Register(fd int) error

	// Unregister stops watching fd.
	Unregister(fd int) error

	// Wait blocks up to timeoutMs (<0: until woken) and fills events.
	// Wakeups are consumed internally and never reported.
	Wait(events []Event, timeoutMs int) (n int, err error)

	// Wake makes a blocked Wait return.
	Wake() error

	// Close releases the poller.
	Close() error
}

// Event describes one ready descriptor.
type Event struct {
	Fd       int
	Readable bool
	Error    bool // error or hangup pending on Fd
}
