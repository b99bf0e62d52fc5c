// Package buildapi provides a Go client for the Electric Imp Build API.
//
// The Build API manages devices, models and model revisions over HTTP, and
// exposes each device's append-only log stream through long-polling. This
// client wraps the request/response calls and implements continuous log
// tailing that survives long-poll expiry and rejected continuation handles.
//
// # Basic Usage
//
// Create a client:
//
//	client := buildapi.NewClient(buildapi.WithAPIKey(apiKey))
//
// List devices:
//
//	devices, err := client.ListDevices(ctx, buildapi.Params{"name": "kitchen"})
//
// # Streaming Logs
//
// StartStream issues one long-poll request at a time and hands every
// non-empty batch to a sink, in order:
//
//	stream := client.StartStream(ctx, deviceID, func(b *buildapi.LogBatch, err error) {
//	    if err != nil {
//	        // Fatal: the stream has stopped. Start a new one to resume.
//	        return
//	    }
//	    for _, entry := range b.Logs {
//	        fmt.Println(entry.Timestamp, entry.Type, entry.Message)
//	    }
//	})
//	defer stream.Cancel()
//
// Or range over the batches:
//
//	for batch, err := range client.Logs(ctx, deviceID) {
//	    if err != nil {
//	        return err
//	    }
//	    process(batch)
//	}
//
// # Error Handling
//
// Every failed call returns an *APIError carrying the server's code and
// messages. Sentinels match through errors.Is:
//
//	if errors.Is(err, buildapi.ErrNotFound) {
//	    // Handle 404
//	}
//	if errors.Is(err, buildapi.ErrInvalidParam) {
//	    // A parameter was rejected before sending
//	}
package buildapi
