package overlay

import (
	"sync"

	"gocv.io/x/gocv"
)

// WindowTitle is the title of the display window.
const WindowTitle = "Webcam Person Detection"

// QuitKey is the key that stops the loop.
const QuitKey = 'q'

// NoKey is returned by PollKey when nothing was pressed.
const NoKey = -1

// Display shows annotated frames and reports key presses.
type Display interface {
	Show(frame *gocv.Mat)
	// PollKey waits briefly for a key and returns it, or NoKey.
	PollKey() int
	Close() error
}

// QuitRequested reports whether key asks the loop to exit.
func QuitRequested(key int) bool {
	return key != NoKey && key&0xFF == QuitKey
}

// Window is a Display backed by an OpenCV highgui window. It must be used
// from the thread that created it.
type Window struct {
	window *gocv.Window
	once   sync.Once
}

// NewWindow opens a window titled WindowTitle.
func NewWindow() *Window {
	return &Window{window: gocv.NewWindow(WindowTitle)}
}

func (w *Window) Show(frame *gocv.Mat) {
	w.window.IMShow(*frame)
}

// PollKey waits 1ms for a key press.
func (w *Window) PollKey() int {
	return w.window.WaitKey(1)
}

func (w *Window) Close() error {
	var err error
	w.once.Do(func() {
		err = w.window.Close()
	})
	return err
}

// Headless is a Display that draws nothing. Keys can be injected for tests
// and for remote stop requests.
type Headless struct {
	mu     sync.Mutex
	keys   []int
	shown  int
	closed bool
}

// NewHeadless creates a Headless display.
func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Show(*gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown++
}

// Press queues key to be returned by the next PollKey.
func (h *Headless) Press(key int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, key)
}

func (h *Headless) PollKey() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.keys) == 0 {
		return NoKey
	}
	key := h.keys[0]
	h.keys = h.keys[1:]
	return key
}

// Shown returns how many frames were shown.
func (h *Headless) Shown() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown
}

func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
