// Package console copies the log to a serial port, so that a clock can be debugged with a USB
// serial cable and no network.
package console

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var droppedWrites = promauto.NewCounter(prometheus.CounterOpts{
	Name: "console_dropped_writes_total",
	Help: "count of log lines that could not be written to the serial console",
})

// Console is an io.Writer that never fails, so that a broken cable doesn't break the rest of the
// log.  Line endings are converted to CRLF for terminal emulators.
type Console struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// New wraps w.
func New(w io.WriteCloser) *Console {
	return &Console{w: w}
}

// Open opens a serial port at baud, 8N1.
func Open(path string, baud int) (*Console, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return New(port), nil
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	crlf := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.w.Write(crlf); err != nil {
		droppedWrites.Inc()
	}
	return len(p), nil
}

// Close closes the port.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Close()
}

// Attach makes l write to the console as well as its current output.
func Attach(l *log.Logger, c *Console) {
	l.SetOutput(io.MultiWriter(l.Out, c))
}
