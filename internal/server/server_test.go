package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamlabs/kolamscan/pkg/cache"
	"github.com/kolamlabs/kolamscan/pkg/pipeline"
	"github.com/kolamlabs/kolamscan/pkg/stages"
)

func testServer() *Server {
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil, stages.DefaultConfig())
	return New(runner, nil, nil)
}

// encodeTestImage returns a small PNG with a single dark disk.
func encodeTestImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 235
	}
	for y := 45; y <= 75; y++ {
		for x := 45; x <= 75; x++ {
			dx, dy := x-60, y-60
			if dx*dx+dy*dy <= 15*15 {
				img.SetGray(x, y, color.Gray{Y: 30})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "kolam.png")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv := testServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAnalyzeStreamsSSE(t *testing.T) {
	srv := testServer()
	body, contentType := multipartUpload(t, encodeTestImage(t))

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// Parse the SSE data lines back into pipeline records.
	var records []map[string]json.RawMessage
	scanner := bufio.NewScanner(rec.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var record map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	require.NotEmpty(t, records)

	// First record is a progress event, last is the composite report, and
	// all five stage partials appear in between.
	_, ok := records[0]["progress"]
	assert.True(t, ok, "stream starts with a progress record")

	last := records[len(records)-1]
	_, ok = last["report"]
	assert.True(t, ok, "stream ends with the final report")

	partials := 0
	for _, r := range records {
		if _, ok := r["report_part"]; ok {
			partials++
		}
	}
	assert.Equal(t, 5, partials)
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	srv := testServer()
	body, contentType := multipartUpload(t, []byte("not an image"))

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	// The upload stages fine; the stream carries the terminal error.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	assert.NotContains(t, rec.Body.String(), `"report_part"`)
}

func TestAnalyzeMissingImageField(t *testing.T) {
	srv := testServer()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsUnavailableWithoutStore(t *testing.T) {
	srv := testServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/some-id", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
