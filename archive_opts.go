package albitezip

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithName sets the archive's diagnostic name, used in errors and logs.
// OpenFile sets it to the file path.
func WithName(name string) Option {
	return func(a *Archive) {
		a.name = name
	}
}

// WithLogger sets the logger for debug output. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithVerifyOnClose controls whether closing an entry stream drains the
// remaining data to verify the CRC-32 and size.
//
// When false, Close returns without reading the remaining data. Integrity
// is only guaranteed when callers read to EOF.
func WithVerifyOnClose(enabled bool) Option {
	return func(a *Archive) {
		a.verifyOnClose = enabled
	}
}

// WithDecompressor registers a decompressor for a compression method,
// replacing any previous registration. Methods 0 (Stored) and 8
// (Deflated) are registered by default.
func WithDecompressor(method uint16, d Decompressor) Option {
	return func(a *Archive) {
		a.decompressors[method] = d
	}
}
