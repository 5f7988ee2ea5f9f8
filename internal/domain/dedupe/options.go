package dedupe

// Option applies a configuration option to the window.
type Option func(*window)

// WithMaxSize bounds how many keys the window remembers.
// Values <= 0 keep the default bound.
func WithMaxSize(maxSize int) Option {
	return func(w *window) {
		if maxSize > 0 {
			w.maxSize = maxSize
		}
	}
}
