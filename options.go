package spatialgo

import (
	"github.com/hupe1980/spatialgo/codec"
)

type options struct {
	codec       codec.Codec
	logger      *Logger
	curveBits   int
	scales      [][]uint32
	maxElements int
}

func defaultOptions() options {
	return options{
		codec:  codec.Default,
		logger: NoopLogger(),
	}
}

// Option configures builder and load behavior.
type Option func(*options)

// WithCodec configures the codec used for dataset descriptors.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithCurveBits sets the per-axis curve precision of the spatial indexes.
// The default is derived from the dimensionality of each space.
func WithCurveBits(bits int) Option {
	return func(o *options) {
		o.curveBits = bits
	}
}

// WithScales builds one extra index resolution per scale, each scale being
// the per-axis precision shift. Overrides WithMaxElements.
func WithScales(scales ...[]uint32) Option {
	return func(o *options) {
		o.scales = scales
	}
}

// WithMaxElements generates coarser index resolutions until one holds at
// most n entries. Queries over large volumes then run against the smaller
// resolutions.
func WithMaxElements(n int) Option {
	return func(o *options) {
		o.maxElements = n
	}
}
