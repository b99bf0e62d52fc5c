package buildapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buildapi "github.com/electricimp/build-api"
	"github.com/electricimp/build-api/buildapitest"
)

func newServer(t *testing.T) (*buildapitest.MockServer, *buildapi.Client) {
	t.Helper()
	server := buildapitest.NewMockServer()
	server.APIKey = "secret"
	t.Cleanup(server.Close)
	return server, server.Client()
}

func TestDevices(t *testing.T) {
	server, client := newServer(t)
	ctx := context.Background()

	server.AddDevice(buildapi.Device{ID: "d1", Name: "kitchen", ModelID: "m1", MacAddress: "0c2a690000aa"})
	server.AddDevice(buildapi.Device{ID: "d2", Name: "garage", ModelID: "m2"})

	all, err := client.ListDevices(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := client.ListDevices(ctx, buildapi.Params{"model_id": "m1"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "kitchen", filtered[0].Name)

	d, err := client.GetDevice(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "0c2a690000aa", d.MacAddress)

	d, err = client.RenameDevice(ctx, "d1", "pantry")
	require.NoError(t, err)
	assert.Equal(t, "pantry", d.Name)

	d, err = client.AssignDevice(ctx, "d1", "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", d.ModelID)
	stored, _ := server.Device("d1")
	assert.Equal(t, "m2", stored.ModelID)

	require.NoError(t, client.DeleteDevice(ctx, "d2"))
	_, err = client.GetDevice(ctx, "d2")
	assert.ErrorIs(t, err, buildapi.ErrNotFound)
}

func TestUnauthorized(t *testing.T) {
	server, _ := newServer(t)
	client := server.Client(buildapi.WithAPIKey("wrong"))

	_, err := client.ListDevices(context.Background(), nil)
	assert.ErrorIs(t, err, buildapi.ErrUnauthorized)

	var apiErr *buildapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestModels(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()

	m, err := client.CreateModel(ctx, "lights")
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)

	_, err = client.CreateModel(ctx, "")
	assert.ErrorIs(t, err, buildapi.ErrInvalidParam, "server-side InvalidParam maps onto the same sentinel")

	got, err := client.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "lights", got.Name)

	renamed, err := client.RenameModel(ctx, m.ID, "lamps")
	require.NoError(t, err)
	assert.Equal(t, "lamps", renamed.Name)

	list, err := client.ListModels(ctx, buildapi.Params{"name": "lamps"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, client.RestartModel(ctx, m.ID))
	require.NoError(t, client.DeleteModel(ctx, m.ID))
	assert.ErrorIs(t, client.RestartModel(ctx, m.ID), buildapi.ErrNotFound)
}

func TestRevisions(t *testing.T) {
	server, client := newServer(t)
	ctx := context.Background()
	server.AddModel(buildapi.Model{ID: "m1", Name: "lights"})

	for _, notes := range []string{"first", "second", "third"} {
		_, err := client.CreateModelRevision(ctx, "m1", buildapi.Params{
			"device_code":   "server.log(\"hi\");",
			"agent_code":    "",
			"release_notes": notes,
		})
		require.NoError(t, err)
	}

	revs, err := client.ListModelRevisions(ctx, "m1", buildapi.Params{"build_min": "2"})
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 2, revs[0].Version)

	rev, err := client.GetModelRevision(ctx, "m1", 3)
	require.NoError(t, err)
	assert.Equal(t, "third", rev.ReleaseNotes)
	assert.WithinDuration(t, time.Now(), rev.CreatedAt, time.Minute)

	_, err = client.GetModelRevision(ctx, "m1", 9)
	assert.ErrorIs(t, err, buildapi.ErrNotFound)

	_, err = client.CreateModelRevision(ctx, "m1", buildapi.Params{"squirrel": "1"})
	assert.ErrorIs(t, err, buildapi.ErrInvalidParam)
}

func TestGetDeviceLogs(t *testing.T) {
	server, client := newServer(t)
	server.AddDevice(buildapi.Device{ID: "d1"})
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	server.AppendLogs("d1",
		buildapi.LogEntry{Timestamp: base.Add(1 * time.Second), Type: "server.log", Message: "a"},
		buildapi.LogEntry{Timestamp: base.Add(2 * time.Second), Type: "agent.log", Message: "b"},
	)

	batch, err := client.GetDeviceLogs(ctx, "d1", buildapi.Params{
		"since": base.Format(time.RFC3339Nano),
		"type":  "agent.log",
	})
	require.NoError(t, err)
	require.Len(t, batch.Logs, 1)
	assert.Equal(t, "b", batch.Logs[0].Message)
	assert.NotEmpty(t, batch.PollURL)

	_, err = client.GetDeviceLogs(ctx, "d1", buildapi.Params{"token": "bogus"})
	var apiErr *buildapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, buildapi.CodeInvalidLogToken, apiErr.Code)
}
