package buildapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buildapi "github.com/electricimp/build-api"
	"github.com/electricimp/build-api/buildapitest"
)

func TestLogsIterator(t *testing.T) {
	client, tr := scriptedClient(
		buildapitest.Batch("h1", entry(1, "a"), entry(2, "b")),
		buildapitest.APIError(http.StatusGatewayTimeout, "GatewayTimeout", "no new logs"),
		buildapitest.Batch("", entry(3, "c")),
		buildapitest.Text(http.StatusInternalServerError, "internal error"),
	)

	var messages []string
	var lastErr error
	for batch, err := range client.Logs(context.Background(), "d1", buildapi.WithSince(at(0))) {
		if err != nil {
			lastErr = err
			break
		}
		for _, e := range batch.Logs {
			messages = append(messages, e.Message)
		}
	}

	assert.Equal(t, []string{"a", "b", "c"}, messages)
	var apiErr *buildapi.APIError
	require.ErrorAs(t, lastErr, &apiErr)
	assert.Equal(t, "500", apiErr.Code)
	assert.Len(t, tr.Requests(), 4)
}

func TestLogsIteratorBreakCancelsStream(t *testing.T) {
	client, tr := scriptedClient(
		buildapitest.Batch("", entry(1, "a")),
		buildapitest.Batch("", entry(2, "b")),
	)

	for range client.Logs(context.Background(), "d1", buildapi.WithSince(at(0))) {
		break
	}

	// The stream stopped before it could poll past the first unread batch.
	assert.LessOrEqual(t, len(tr.Requests()), 2)
}

func TestEntriesIterator(t *testing.T) {
	client, _ := scriptedClient(
		buildapitest.Batch("h1", entry(1, "a"), entry(2, "b")),
		buildapitest.Batch("h2", entry(3, "c")),
	)

	var messages []string
	for e, err := range client.Entries(context.Background(), "d1", buildapi.WithSince(at(0))) {
		require.NoError(t, err)
		messages = append(messages, e.Message)
		if len(messages) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, messages)
}
