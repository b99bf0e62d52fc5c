package buildapi

import "time"

// CursorMode tells which resumption mode a Cursor is in.
type CursorMode string

const (
	// CursorModeTimestamp resumes with "only logs strictly after Since".
	CursorModeTimestamp CursorMode = "timestamp"

	// CursorModeContinuation resumes by dereferencing a server-issued handle.
	CursorModeContinuation CursorMode = "continuation"
)

// Cursor is the position from which a log stream resumes.
//
// A Cursor is either in timestamp mode or in continuation mode:
//   - Timestamp mode: the next request asks for logs after Since.
//   - Continuation mode: the next request dereferences Handle and sends
//     nothing else; Since is kept only as the last known-good timestamp to
//     fall back to if the handle is rejected.
//
// The zero Cursor is a timestamp cursor at the zero time. A stream treats a
// zero Since as unknown and replaces it with the time the stream starts, so
// a rejected handle never rewinds to the beginning of the device's history.
type Cursor struct {
	// Since is the last known-good timestamp.
	Since time.Time

	// Handle is the continuation handle (a poll URL or path), if any.
	Handle string
}

// SinceCursor returns a timestamp-mode cursor.
// Use it to start a stream at a fixed point: client.StartStream(ctx, id, sink, WithCursor(SinceCursor(t)))
func SinceCursor(t time.Time) Cursor {
	return Cursor{Since: t}
}

// ContinuationCursor returns a continuation-mode cursor for the given handle.
func ContinuationCursor(handle string) Cursor {
	return Cursor{Handle: handle}
}

// Mode returns the cursor's active resumption mode.
func (c Cursor) Mode() CursorMode {
	if c.Handle != "" {
		return CursorModeContinuation
	}
	return CursorModeTimestamp
}

// String returns the value the next request would carry.
func (c Cursor) String() string {
	if c.Handle != "" {
		return c.Handle
	}
	return formatTimestamp(c.Since)
}

// advance moves Since forward to t. Since never moves backward.
func (c Cursor) advance(t time.Time) Cursor {
	if t.After(c.Since) {
		c.Since = t
	}
	return c
}

// follow switches to continuation mode, keeping Since as the fallback.
func (c Cursor) follow(handle string) Cursor {
	c.Handle = handle
	return c
}

// anchor drops any handle and resumes in timestamp mode at t, or at Since
// if t is earlier.
func (c Cursor) anchor(t time.Time) Cursor {
	return c.fallback().advance(t)
}

// fallback drops any handle and resumes at the last known-good timestamp.
func (c Cursor) fallback() Cursor {
	return Cursor{Since: c.Since}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
