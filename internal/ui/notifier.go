package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/noah-isme/sma-adp-datatable/internal/notify"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
)

// WriterNotifier prints styled toasts, one per line. Commands point it at
// stderr so tables on stdout stay clean.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements notify.Notifier.
func (n *WriterNotifier) Notify(level notify.Level, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, styles.Toast(notify.Message{Level: level, Text: text}))
}

// ChanNotifier queues toasts for a bubbletea program. Toasts raised while
// the queue is full are dropped.
type ChanNotifier struct {
	ch chan notify.Message
}

// NewChanNotifier creates a notifier with room for size pending toasts.
func NewChanNotifier(size int) *ChanNotifier {
	if size <= 0 {
		size = 16
	}
	return &ChanNotifier{ch: make(chan notify.Message, size)}
}

// Notify implements notify.Notifier.
func (n *ChanNotifier) Notify(level notify.Level, text string) {
	select {
	case n.ch <- notify.Message{Level: level, Text: text}:
	default:
	}
}

// C returns the receive side of the queue.
func (n *ChanNotifier) C() <-chan notify.Message {
	return n.ch
}
