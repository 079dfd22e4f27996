package transfer

// Window is the in-flight chunk budget of the sender. It starts at one,
// doubles after every fully acknowledged round and falls back to one after
// any round that saw a timeout. Threshold caps it.
type Window struct {
	size      int
	threshold int
}

func NewWindow(threshold int) *Window {
	if threshold < 1 {
		threshold = 1
	}
	return &Window{size: 1, threshold: threshold}
}

// Open starts a round: it clamps the size to the threshold and returns the
// number of chunks the round may send.
func (w *Window) Open() int {
	if w.size > w.threshold {
		w.size = w.threshold
	}
	return w.size
}

// Grow doubles the window after a lossless round.
func (w *Window) Grow() {
	// Open clamps the result back to threshold.
	if w.size <= w.threshold {
		w.size *= 2
	}
}

// Reset shrinks the window to one after a timeout.
func (w *Window) Reset() {
	w.size = 1
}

func (w *Window) Size() int {
	return w.size
}

func (w *Window) Threshold() int {
	return w.threshold
}
