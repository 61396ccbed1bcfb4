package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Until returns the duration until t measured against NowFunc.
func Until(t time.Time) time.Duration { return t.Sub(NowFunc()) }

// Since returns the duration elapsed since t measured against NowFunc.
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }

// Freeze pins NowFunc to t and returns a function restoring the previous source.
func Freeze(t time.Time) (restore func()) {
	prev := NowFunc
	NowFunc = func() time.Time { return t }
	return func() { NowFunc = prev }
}
