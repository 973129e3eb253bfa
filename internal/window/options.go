package window

import "log/slog"

type options struct {
	itemHeight     float64
	spacing        float64
	paddingTop     float64
	paddingBottom  float64
	overscanBefore int
	overscanAfter  int
	sizer          Sizer
	minViewport    float64
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		itemHeight:  1,
		minViewport: 1,
		logger:      slog.Default(),
	}
}

type Option func(*options)

// WithItemHeight sets the fixed item height used when no Sizer is set.
func WithItemHeight(height float64) Option {
	return func(o *options) {
		o.itemHeight = max(0, height)
	}
}

// WithSpacing sets the gap between items. No gap follows the last item.
func WithSpacing(spacing float64) Option {
	return func(o *options) {
		o.spacing = max(0, spacing)
	}
}

// WithPadding sets the space above the first and below the last item.
func WithPadding(top, bottom float64) Option {
	return func(o *options) {
		o.paddingTop = max(0, top)
		o.paddingBottom = max(0, bottom)
	}
}

// WithOverscan realizes extra items around the visible window.
func WithOverscan(before, after int) Option {
	return func(o *options) {
		o.overscanBefore = max(0, before)
		o.overscanAfter = max(0, after)
	}
}

// WithSizer switches to per-item heights.
func WithSizer(sizer Sizer) Option {
	return func(o *options) {
		o.sizer = sizer
	}
}

// WithMinViewportHeight sets the height at or below which the viewport is
// considered not laid out yet, and the visible window is estimated instead.
func WithMinViewportHeight(height float64) Option {
	return func(o *options) {
		o.minViewport = max(0, height)
	}
}

// WithLogger sets the logger used to report cell failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
