// Package buildapitest provides testing utilities for Build API clients.
//
// # MockServer
//
// MockServer is an in-memory implementation of the Build API, including
// long-polled device logs with poll URLs. Use it for unit testing without
// network dependencies:
//
//	func TestTail(t *testing.T) {
//	    server := buildapitest.NewMockServer()
//	    defer server.Close()
//
//	    server.AddDevice(buildapi.Device{ID: "dev1"})
//	    client := server.Client()
//
//	    stream := client.StartStream(ctx, "dev1", sink, buildapi.WithSince(start))
//	    defer stream.Cancel()
//
//	    server.AppendLogs("dev1", buildapi.LogEntry{Timestamp: start.Add(time.Second), Message: "hello"})
//	}
//
// InjectError and ExpireTokens drive the failure paths: a 504 from
// InjectError is an expired long-poll, ExpireTokens makes every issued poll
// URL answer 400 InvalidLogToken.
//
// # ScriptedTransport
//
// ScriptedTransport is a buildapi.Transport that replays a fixed script of
// responses and records every request, for exact assertions on what the
// log stream controller asks for next:
//
//	transport := buildapitest.NewScriptedTransport(
//	    buildapitest.Batch("/v4/devices/dev1/logs?token=h1", entry),
//	    buildapitest.APIError(504, "GatewayTimeout", "no new logs"),
//	)
//	client := buildapi.NewClient(buildapi.WithTransport(transport))
//
// # MockTransport
//
// MockTransport is an http.RoundTripper for testing the HTTP layer
// with controlled responses.
package buildapitest
