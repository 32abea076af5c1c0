package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goatnetwork/qlink/internal/db"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/goatnetwork/qlink/internal/metrics"
	"github.com/goatnetwork/qlink/internal/state"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, dbm *db.DatabaseManager, secret string) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewHTTPServerWithOptions(state.InitializeState(dbm), metrics.NewReporter(time.Minute), ServerOptions{
		Addr:           "127.0.0.1:0",
		TokenSecret:    secret,
		MaxFragmentLen: 100,
		FrameDelay:     multipart.RecommendedFrameDelay,
	})
}

func doJSON(t *testing.T, hs *HTTPServer, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	hs.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	hs := newTestServer(t, nil, "")
	w := doJSON(t, hs, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, Version, resp["version"])
}

func TestFragmentsSinglePart(t *testing.T) {
	hs := newTestServer(t, nil, "")
	text, err := envelope.Encode("bytes", []byte{0xab, 0xcd})
	require.NoError(t, err)

	w := doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{Fragment: text}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp FragmentResponse
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, "Complete!", resp.Message)
	require.Len(t, resp.Payloads, 1)
	assert.Equal(t, "abcd", resp.Payloads[0]["bytes_hex"])
}

func TestFragmentsMultiPartBatch(t *testing.T) {
	hs := newTestServer(t, nil, "")
	data := make([]byte, 260)
	for i := range data {
		data[i] = byte(i)
	}
	enc, err := multipart.NewEncoder("bytes", data, 100)
	require.NoError(t, err)
	parts := enc.AllParts()

	w := doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{Fragments: parts[:1]}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var partial FragmentResponse
	decode(t, w, &partial)
	assert.False(t, partial.Progress.Complete)
	assert.Empty(t, partial.Payloads)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, "")
	var session SessionResponse
	decode(t, w, &session)
	assert.Equal(t, 1, session.Progress.PartsReceived)
	assert.Nil(t, session.Last)

	w = doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{Fragments: append(parts[1:], "junk")}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var done FragmentResponse
	decode(t, w, &done)
	require.Len(t, done.Payloads, 1)
	require.Len(t, done.Rejected, 1)
	assert.Equal(t, len(parts)-1, done.Rejected[0].Index)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, "")
	decode(t, w, &session)
	require.NotNil(t, session.Last)
	assert.NotNil(t, session.DecodedAt)
}

func TestFragmentsRejected(t *testing.T) {
	hs := newTestServer(t, nil, "")

	w := doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{Fragment: "not a ur"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetSession(t *testing.T) {
	hs := newTestServer(t, nil, "")
	enc, err := multipart.NewEncoder("bytes", make([]byte, 300), 100)
	require.NoError(t, err)
	doJSON(t, hs, http.MethodPost, "/api/v1/fragments", FragmentRequest{Fragment: enc.NextPart().URString}, "")

	w := doJSON(t, hs, http.MethodDelete, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, hs.state.Progress().PartsReceived)
}

func TestEncode(t *testing.T) {
	hs := newTestServer(t, nil, "")

	w := doJSON(t, hs, http.MethodPost, "/api/v1/encode", EncodeRequest{URType: "bytes", DataHex: "0x0102"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var single EncodeResponse
	decode(t, w, &single)
	assert.False(t, single.IsMultipart)
	assert.Equal(t, 1, single.TotalParts)
	assert.Equal(t, int64(150), single.FrameDelayMs)

	big := make([]byte, 500)
	w = doJSON(t, hs, http.MethodPost, "/api/v1/encode", EncodeRequest{
		URType:         "bytes",
		DataHex:        "00" + string(bytes.Repeat([]byte("ff"), len(big)-1)),
		MaxFragmentLen: 100,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var multi EncodeResponse
	decode(t, w, &multi)
	assert.True(t, multi.IsMultipart)
	assert.Equal(t, 5, multi.TotalParts)
	assert.Len(t, multi.Parts, 5)

	w = doJSON(t, hs, http.MethodPost, "/api/v1/encode", EncodeRequest{URType: "bytes", DataHex: "zz"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, hs, http.MethodPost, "/api/v1/encode", EncodeRequest{URType: "Bad Type", DataHex: "00"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory(t *testing.T) {
	hs := newTestServer(t, nil, "")
	w := doJSON(t, hs, http.MethodGet, "/api/v1/history", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	dbm, err := db.OpenDatabaseManager(t.TempDir())
	require.NoError(t, err)
	defer dbm.Close()
	require.NoError(t, dbm.SaveScan(&db.ScanRecord{URType: "bytes", Encoding: "cbor", Variant: "unknown", BytesHex: "00", Parts: 1}))

	hs = newTestServer(t, dbm, "")
	w = doJSON(t, hs, http.MethodGet, "/api/v1/history?limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Records []db.ScanRecord `json:"records"`
		Count   int             `json:"count"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "bytes", resp.Records[0].URType)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/history?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryByCID(t *testing.T) {
	dbm, err := db.OpenDatabaseManager(t.TempDir())
	require.NoError(t, err)
	defer dbm.Close()

	id, err := db.PayloadCID([]byte{0x42})
	require.NoError(t, err)
	require.NoError(t, dbm.SaveScan(&db.ScanRecord{URType: "bytes", Encoding: "cbor", Variant: "unknown", BytesHex: "42", CID: id, Parts: 1}))

	hs := newTestServer(t, dbm, "")
	w := doJSON(t, hs, http.MethodGet, "/api/v1/history/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bytes_hex":"42"`)

	missing, err := db.PayloadCID([]byte{0x43})
	require.NoError(t, err)
	w = doJSON(t, hs, http.MethodGet, "/api/v1/history/"+missing, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/history/bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	hs := newTestServer(t, nil, "")
	metrics.RecordFrameInterval(10 * time.Millisecond)

	w := doJSON(t, hs, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qlink_frame_interval_seconds")

	w = doJSON(t, hs, http.MethodGet, "/api/v1/metrics/window", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap metrics.Snapshot
	decode(t, w, &snap)
	assert.NotNil(t, snap.FrameIntervals)
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuth(t *testing.T) {
	hs := newTestServer(t, nil, testSecret)

	w := doJSON(t, hs, http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, signToken(t, jwt.SigningMethodHS256, "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, signToken(t, jwt.SigningMethodHS384, testSecret))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, hs, http.MethodGet, "/api/v1/session", nil, signToken(t, jwt.SigningMethodHS256, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	hs := newTestServer(t, nil, "")
	hs.Router().GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := doJSON(t, hs, http.MethodGet, "/panic", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
