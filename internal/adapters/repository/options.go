package repository

// Default store configuration constants.
const (
	defaultPageSize = 100
)

type storeOptions struct {
	pageSize int
}

// Option applies a configuration option to the typed stores.
type Option func(*storeOptions)

// WithPageSize sets how many records a single scan request asks for.
func WithPageSize(size int) Option {
	return func(o *storeOptions) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
