package buildapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives a stream's output. It is called synchronously from the
// stream's goroutine, one call at a time: once per non-empty batch with
// err == nil, and at most once with batch == nil and a non-nil err, after
// which the stream has stopped.
//
// A slow sink slows polling down; a sink that never returns stalls the stream.
type Sink func(batch *LogBatch, err error)

// Checkpointer persists stream positions across processes.
type Checkpointer interface {
	// LoadCursor returns the saved cursor for a device, if any.
	LoadCursor(ctx context.Context, deviceID string) (Cursor, bool, error)

	// SaveCursor stores the cursor for a device.
	SaveCursor(ctx context.Context, deviceID string, c Cursor) error
}

// LogStream is a running device log stream. Create one with Client.StartStream.
type LogStream struct {
	id       string
	deviceID string
	client   *Client
	sink     Sink
	cfg      streamConfig
	logger   *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	canceled atomic.Bool
	done     chan struct{}

	// Internal state
	mu     sync.Mutex
	cursor Cursor
	err    error
}

// StartStream tails a device's logs until the stream is cancelled or fails.
//
// Each non-empty batch is passed to sink in arrival order. Expired
// long-polls and rejected continuation handles are recovered internally;
// any other failure is passed to sink once and ends the stream.
//
// Without WithCursor the stream starts at the cursor saved by the
// checkpointer, if any, and otherwise at the current time, so only logs
// produced after the call are delivered. The checkpoint is loaded before
// StartStream returns.
//
// Example:
//
//	stream := client.StartStream(ctx, deviceID, func(b *buildapi.LogBatch, err error) {
//	    if err != nil {
//	        log.Println("stream stopped:", err)
//	        return
//	    }
//	    for _, entry := range b.Logs {
//	        fmt.Println(entry.Timestamp, entry.Message)
//	    }
//	})
//	defer stream.Cancel()
func (c *Client) StartStream(ctx context.Context, deviceID string, sink Sink, opts ...StreamOption) *LogStream {
	cfg := streamConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cursor := SinceCursor(c.now())
	if cfg.cursor != nil {
		cursor = *cfg.cursor
	}

	streamCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()

	s := &LogStream{
		id:       id,
		deviceID: deviceID,
		client:   c,
		sink:     sink,
		cfg:      cfg,
		logger:   c.logger.With(zap.String("stream_id", id), zap.String("device_id", deviceID)),
		ctx:      streamCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		cursor:   cursor,
	}
	s.restore()
	if s.cursor.Since.IsZero() {
		s.cursor.Since = c.now()
	}

	go s.run()
	return s
}

// Cancel stops the stream. Idempotent.
func (c *Client) Cancel(s *LogStream) {
	s.Cancel()
}

// ID returns the stream's unique id.
func (s *LogStream) ID() string {
	return s.id
}

// DeviceID returns the device being streamed.
func (s *LogStream) DeviceID() string {
	return s.deviceID
}

// Cursor returns the current resumption cursor.
func (s *LogStream) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Cancel stops the stream: the in-flight request is aborted, no further
// request is issued and the sink is not invoked again. Idempotent and safe
// to call from the sink.
func (s *LogStream) Cancel() {
	s.canceled.Store(true)
	s.cancel()
}

// Done is closed when the stream has stopped.
func (s *LogStream) Done() <-chan struct{} {
	return s.done
}

// Err returns why the stream stopped: the fatal *APIError, or
// ErrStreamCanceled. It returns nil while the stream is running.
func (s *LogStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the stream stops and returns Err.
func (s *LogStream) Wait() error {
	<-s.done
	return s.Err()
}

func (s *LogStream) run() {
	defer close(s.done)
	defer s.cancel()

	for {
		if s.stopped() {
			s.finish(ErrStreamCanceled)
			return
		}

		cursor := s.Cursor()
		resp, err := s.client.transport.Do(s.ctx, s.request(cursor))
		if s.stopped() {
			s.finish(ErrStreamCanceled)
			return
		}

		outcome := Classify(resp, err)
		s.logger.Debug("poll finished",
			zap.String("mode", string(cursor.Mode())),
			zap.String("cursor", cursor.String()),
			zap.Stringer("outcome", outcome.Kind))
		switch outcome.Kind {
		case OutcomeDelivered:
			s.deliver(cursor, outcome.Batch)

		case OutcomeTimeout:
			next := cursor.anchor(s.client.now())
			if s.cfg.resumeLastSeen {
				next = cursor.fallback()
			}
			s.setCursor(next)
			s.logger.Debug("long-poll expired, re-anchoring",
				zap.String("since", next.String()))

		case OutcomeInvalidCursor:
			next := cursor.fallback()
			s.setCursor(next)
			s.logger.Debug("continuation handle rejected, resuming from last timestamp",
				zap.String("handle", cursor.Handle),
				zap.String("since", next.String()))

		default:
			s.logger.Warn("log stream failed",
				zap.String("code", outcome.Err.Code),
				zap.Int("status", outcome.Err.StatusCode),
				zap.Error(outcome.Err))
			s.finish(outcome.Err)
			s.emit(nil, outcome.Err)
			return
		}
	}
}

// restore loads the checkpointed cursor when the caller gave none. It runs
// before the stream goroutine starts.
func (s *LogStream) restore() {
	if s.cfg.cursor != nil || s.cfg.checkpointer == nil {
		return
	}
	saved, ok, err := s.cfg.checkpointer.LoadCursor(s.ctx, s.deviceID)
	if err != nil {
		s.logger.Warn("failed to load checkpoint, starting from now", zap.Error(err))
		return
	}
	if ok {
		s.cursor = saved
		s.logger.Debug("resuming from checkpoint", zap.String("cursor", saved.String()))
	}
}

// deliver applies a batch to the cursor and hands it to the sink.
func (s *LogStream) deliver(cursor Cursor, batch *LogBatch) {
	next := cursor.fallback()
	last, hasLogs := batch.Last()
	if hasLogs {
		next = next.advance(last.Timestamp)
	}
	if batch.PollURL != "" {
		next = next.follow(batch.PollURL)
	}
	s.setCursor(next)

	if !hasLogs {
		return
	}

	s.logger.Debug("delivering batch",
		zap.Int("entries", len(batch.Logs)),
		zap.String("mode", string(next.Mode())))
	if !s.emit(batch, nil) {
		return
	}

	if s.cfg.checkpointer != nil {
		if err := s.cfg.checkpointer.SaveCursor(s.ctx, s.deviceID, SinceCursor(next.Since)); err != nil {
			s.logger.Warn("failed to save checkpoint", zap.Error(err))
		}
	}
}

// emit invokes the sink unless the stream has been cancelled.
func (s *LogStream) emit(batch *LogBatch, err error) bool {
	if s.stopped() {
		return false
	}
	s.sink(batch, err)
	return true
}

func (s *LogStream) stopped() bool {
	return s.canceled.Load() || s.ctx.Err() != nil
}

func (s *LogStream) setCursor(c Cursor) {
	s.mu.Lock()
	s.cursor = c
	s.mu.Unlock()
}

func (s *LogStream) finish(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	if errors.Is(err, ErrStreamCanceled) {
		s.logger.Debug("log stream canceled")
	}
}

// request builds the next request. A continuation handle is dereferenced
// as-is; only timestamp mode carries filters.
func (s *LogStream) request(c Cursor) *Request {
	if c.Mode() == CursorModeContinuation {
		return &Request{Method: http.MethodGet, URL: s.client.resolveHandle(c.Handle)}
	}

	params := Params{"since": formatTimestamp(c.Since)}
	if s.cfg.logType != "" {
		params["type"] = s.cfg.logType
	}
	if s.cfg.wait > 0 {
		params["wait"] = strconv.FormatInt(int64(math.Ceil(s.cfg.wait.Seconds())), 10)
	}
	return &Request{Method: http.MethodGet, URL: s.client.deviceLogsURL(s.deviceID), Params: params}
}
