package buildapi

import (
	"context"
	"iter"
)

// Logs returns an iterator over a device's log batches, driven by StartStream.
//
//	for batch, err := range client.Logs(ctx, deviceID) {
//	    if err != nil {
//	        return err
//	    }
//	    for _, entry := range batch.Logs {
//	        fmt.Println(entry.Message)
//	    }
//	}
//
// The iteration ends after a fatal error, when ctx is cancelled, or when the
// loop body breaks; breaking cancels the underlying stream. The stream does
// not poll again until the loop body has finished with the previous batch.
func (c *Client) Logs(ctx context.Context, deviceID string, opts ...StreamOption) iter.Seq2[*LogBatch, error] {
	return func(yield func(*LogBatch, error) bool) {
		ctx, cancel := context.WithCancel(ctx)

		type result struct {
			batch *LogBatch
			err   error
		}
		results := make(chan result)

		stream := c.StartStream(ctx, deviceID, func(batch *LogBatch, err error) {
			select {
			case results <- result{batch, err}:
			case <-ctx.Done():
			}
		}, opts...)
		defer func() {
			cancel()
			stream.Cancel()
			<-stream.Done()
		}()

		for {
			select {
			case r := <-results:
				if !yield(r.batch, r.err) || r.err != nil {
					return
				}
			case <-stream.Done():
				return
			}
		}
	}
}

// Entries flattens Logs into individual entries.
func (c *Client) Entries(ctx context.Context, deviceID string, opts ...StreamOption) iter.Seq2[LogEntry, error] {
	return func(yield func(LogEntry, error) bool) {
		for batch, err := range c.Logs(ctx, deviceID, opts...) {
			if err != nil {
				yield(LogEntry{}, err)
				return
			}
			for _, entry := range batch.Logs {
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}
