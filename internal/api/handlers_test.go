package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gwebsocket "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vroom-gateway/internal/data"
	"vroom-gateway/internal/entity"
	"vroom-gateway/internal/metrics"
	"vroom-gateway/internal/torque"
	"vroom-gateway/internal/websocket"
)

type fixture struct {
	handler *APIHandler
	data    http.Handler
	ui      http.Handler
	sink    *entity.Recorder
	hub     *websocket.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sink := &entity.Recorder{}
	hub := websocket.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	fanout := entity.NewFanout(sink, hub)
	receivers := []*torque.Receiver{
		torque.NewReceiver("a@b.com", "Car1", fanout, m, nil),
		torque.NewReceiver("", "Van", fanout, m, nil),
	}
	h, err := NewAPIHandler(receivers, hub, nil)
	require.NoError(t, err)

	return &fixture{
		handler: h,
		data:    SetupDataRouter(h),
		ui:      SetupUIRouter(h, reg),
		sink:    sink,
		hub:     hub,
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleTorque(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.data, "/api/vroom/Car1?eml=a@b.com&userFullNamed=Speed&userUnitd=mph&kd=55")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, torque.Ack, rec.Body.String())
	require.Len(t, f.sink.Batches(), 1)
	assert.Equal(t, "Car1 Speed", f.sink.Batches()[0][0].Name)
	assert.Empty(t, f.sink.Values())

	rec = get(t, f.data, "/api/vroom/Car1?eml=a@b.com&kd=60")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, torque.Ack, rec.Body.String())
	require.Len(t, f.sink.Values(), 1)
	assert.Equal(t, "60", f.sink.Values()[0].Value)
}

func TestHandleTorque_WrongEmail(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.data, "/api/vroom/Car1?eml=x@y.com&userFullNamed=Speed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, f.sink.Batches())
}

func TestHandleTorque_MalformedIdentifier(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.data, "/api/vroom/Van?userFullNameSpeed=Speed")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, f.sink.Batches())
}

func TestHandleTorque_UnknownVehicle(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.data, "/api/vroom/Nope?kd=1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTorque_PostNotAllowed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/vroom/Van", nil)
	rec := httptest.NewRecorder()
	f.data.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSensors(t *testing.T) {
	f := newFixture(t)
	get(t, f.data, "/api/vroom/Van?userFullNamed=Speed&userUnitd=mph")
	get(t, f.data, "/api/vroom/Van?kd=42")

	rec := get(t, f.ui, "/api/vroom/Van/sensors")
	require.Equal(t, http.StatusOK, rec.Code)

	var sensors []data.SensorRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sensors))
	require.Len(t, sensors, 1)
	assert.Equal(t, "Van Speed", sensors[0].DisplayName)
	assert.Equal(t, data.SensorID(0x0d), sensors[0].ID)
	require.NotNil(t, sensors[0].CurrentValue)
	assert.Equal(t, "42", *sensors[0].CurrentValue)

	rec = get(t, f.ui, "/api/vroom/Car1/sensors")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, f.ui, "/api/vroom/Nope/sensors").Code)
}

func TestServeWebUI(t *testing.T) {
	f := newFixture(t)
	get(t, f.data, "/api/vroom/Van?userFullNamed=Speed&userUnitd=km%2Fh")
	get(t, f.data, "/api/vroom/Van?kd=88")

	rec := get(t, f.ui, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Van Speed")
	assert.Contains(t, body, "88")
	assert.Contains(t, body, "km/h")
	assert.Contains(t, body, "/api/vroom/Car1")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	get(t, f.data, "/api/vroom/Van?userFullNamed=Speed")

	rec := get(t, f.ui, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vroom_requests_total{result="accepted",vehicle="Van"} 1`)
	assert.Contains(t, rec.Body.String(), `vroom_sensors{vehicle="Van"} 1`)
}

func TestHandleWebSocket(t *testing.T) {
	f := newFixture(t)
	get(t, f.data, "/api/vroom/Van?userFullNamed=Speed")

	srv := httptest.NewServer(f.ui)
	defer srv.Close()

	conn, resp, err := gwebsocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
	}

	read := func() map[string]json.RawMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	}

	msg := read()
	assert.JSONEq(t, `"history"`, string(msg["type"]))
	assert.Contains(t, string(msg["payload"]), "Van Speed")

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	get(t, f.data, "/api/vroom/Van?kd=12")
	msg = read()
	assert.JSONEq(t, `"state"`, string(msg["type"]))
	assert.Contains(t, string(msg["payload"]), `"value":"12"`)
}
