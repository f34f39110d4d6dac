package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

type fileDecoder struct {
	sig      *audio.Signal
	err      error
	path     string
	format   decode.Format
	contents []byte
}

func (d *fileDecoder) Decode(_ context.Context, path string, format decode.Format) (*audio.Signal, error) {
	d.path = path
	d.format = format
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d.contents = contents
	return d.sig, d.err
}

func tone(freq, seconds float64, rate int) *audio.Signal {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return audio.NewSignal(samples, rate)
}

func newTestServer(t *testing.T, dec decode.Decoder, mutate func(*Config)) *Server {
	t.Helper()

	extractor, err := speech.NewExtractor(nil)
	require.NoError(t, err)

	cfg := &Config{
		Server: configs.GetDefaultServerConfig(),
		Output: configs.GetDefaultOutputConfig(),
		Logger: logging.NewDefaultLogger(),
	}
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, dec, extractor)
	require.NoError(t, err)
	return s
}

func uploadRequest(t *testing.T, filename, contentType string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+UploadField+`"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, &fileDecoder{}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "Pediatric Speech Analyzer")
	assert.Contains(t, body, "WAV/MP3/FLAC")
	assert.Contains(t, body, `name="audio"`)
	assert.NotContains(t, body, "Audio uploaded successfully!")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fileDecoder{}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyzeRendersResults(t *testing.T) {
	dec := &fileDecoder{sig: tone(220, 3, 8000)}
	s := newTestServer(t, dec, nil)
	payload := []byte("RIFF....WAVEfmt ")

	req := uploadRequest(t, "child.wav", "audio/wav", payload)
	req.Header.Set("X-Request-ID", "req-42")
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	body := rec.Body.String()
	assert.Contains(t, body, "Audio uploaded successfully!")
	assert.Contains(t, body, "data:audio/wav;base64,")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Speech Pattern Analysis")
	assert.Contains(t, body, "<dt>Duration (s)</dt><dd>3</dd>")
	assert.Contains(t, body, speech.StatusWithinNormalRange)
	assert.Contains(t, body, speech.RecommendMaintainPractice)
	assert.Contains(t, body, "level-normal")

	assert.Equal(t, decode.FormatWAV, dec.format)
	assert.Equal(t, payload, dec.contents, "decoder sees the uploaded bytes")
	_, err := os.Stat(dec.path)
	assert.True(t, os.IsNotExist(err), "temporary upload is removed")
}

func TestAnalyzeUsesContentTypeWithoutExtension(t *testing.T) {
	dec := &fileDecoder{sig: tone(300, 1, 8000)}
	s := newTestServer(t, dec, nil)

	rec := serve(s, uploadRequest(t, "recording", "audio/flac", []byte("fLaC")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, decode.FormatFLAC, dec.format)
	assert.Contains(t, rec.Body.String(), "data:audio/flac;base64,")
	assert.Contains(t, rec.Body.String(), speech.StatusSlightlyDelayed+"<",
		"short recordings are never within normal range")
}

func TestAnalyzeRejections(t *testing.T) {
	tests := []struct {
		name       string
		decoder    *fileDecoder
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantText   string
	}{
		{
			name:    "missing file",
			decoder: &fileDecoder{sig: tone(220, 1, 8000)},
			request: func(t *testing.T) *http.Request {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				require.NoError(t, mw.WriteField("note", "no audio"))
				require.NoError(t, mw.Close())
				req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantText:   "no audio file was uploaded",
		},
		{
			name:    "not multipart",
			decoder: &fileDecoder{},
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("raw"))
			},
			wantStatus: http.StatusBadRequest,
			wantText:   "expected a multipart upload",
		},
		{
			name:    "unsupported type",
			decoder: &fileDecoder{sig: tone(220, 1, 8000)},
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "child.ogg", "audio/ogg", []byte("OggS"))
			},
			wantStatus: http.StatusBadRequest,
			wantText:   "unsupported file type",
		},
		{
			name: "decode failure",
			decoder: &fileDecoder{err: decode.NewDecodeError(decode.FormatMP3, "", decode.ErrCodeDecoding,
				"failed to decode audio file", errors.New("no frames"))},
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "child.mp3", "audio/mpeg", []byte("ID3"))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "failed to decode audio file",
		},
		{
			name:    "invalid signal",
			decoder: &fileDecoder{sig: audio.NewSignal([]float64{0.2}, 0)},
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "child.wav", "", []byte("RIFF"))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.decoder, nil)
			rec := serve(s, tt.request(t))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.NotContains(t, rec.Body.String(), "Audio uploaded successfully!")
		})
	}
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	dec := &fileDecoder{sig: tone(220, 1, 8000)}
	s := newTestServer(t, dec, func(c *Config) { c.Server.MaxUploadBytes = 1024 })

	rec := serve(s, uploadRequest(t, "child.wav", "audio/wav", make([]byte, 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload exceeds the 1 KB limit")
	assert.Empty(t, dec.path, "decoder must not run")
}

func TestAnalyzeRateLimited(t *testing.T) {
	dec := &fileDecoder{sig: tone(220, 1, 8000)}
	s := newTestServer(t, dec, func(c *Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	first := serve(s, uploadRequest(t, "child.wav", "audio/wav", []byte("RIFF")))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(s, uploadRequest(t, "child.wav", "audio/wav", []byte("RIFF")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fileDecoder{sig: tone(220, 3, 8000)}, nil)

	require.Equal(t, http.StatusOK, serve(s, uploadRequest(t, "a.wav", "audio/wav", []byte("RIFF"))).Code)
	require.Equal(t, http.StatusBadRequest, serve(s, uploadRequest(t, "a.ogg", "", []byte("OggS"))).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `speech_analyzer_analyses_total{level="normal"} 1`)
	assert.Contains(t, body, `speech_analyzer_analysis_failures_total{reason="unsupported_format"} 1`)
	assert.Contains(t, body, `speech_analyzer_http_requests_total{method="POST",path="/analyze",status="200"} 1`)
}

func TestUploadFormat(t *testing.T) {
	f, err := uploadFormat("Story.MP3", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, decode.FormatMP3, f)

	f, err = uploadFormat("blob", "audio/x-wav")
	require.NoError(t, err)
	assert.Equal(t, decode.FormatWAV, f)

	_, err = uploadFormat("notes.txt", "text/plain")
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, &fileDecoder{}, func(c *Config) { c.Server.ShutdownTimeout = time.Second })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}

type panicAnalyzer struct{}

func (panicAnalyzer) Analyze(*audio.Signal) (*speech.Report, error) {
	panic("analyzer exploded")
}

func TestRecoveredPanicIsCounted(t *testing.T) {
	s, err := New(&Config{
		Server: configs.GetDefaultServerConfig(),
		Output: configs.GetDefaultOutputConfig(),
		Logger: logging.NewDefaultLogger(),
	}, &fileDecoder{sig: tone(220, 1, 8000)}, panicAnalyzer{})
	require.NoError(t, err)

	rec := serve(s, uploadRequest(t, "child.wav", "audio/wav", []byte("RIFF")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	metrics := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(),
		`speech_analyzer_http_requests_total{method="POST",path="/analyze",status="500"} 1`)
}

func TestAnalyzeErrorPageHidesCause(t *testing.T) {
	tmpPath := filepath.Join(os.TempDir(), "speech-upload-123.mp3")
	dec := &fileDecoder{err: decode.NewDecodeError(decode.FormatMP3, tmpPath, decode.ErrCodeDecoding,
		"failed to decode audio file", errors.New("ffmpeg: "+tmpPath+": Invalid data found when processing input"))}
	s := newTestServer(t, dec, nil)

	rec := serve(s, uploadRequest(t, "child.mp3", "audio/mpeg", []byte("ID3")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "failed to decode audio file")
	assert.NotContains(t, body, "ffmpeg")
	assert.NotContains(t, body, "speech-upload-123")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "sample rate must be positive",
		userMessage(fmt.Errorf("analysis: %w", audio.NewInvalidInputError(audio.ErrCodeInvalidSampleRate, "sample rate must be positive", 0, 1))))
	assert.Equal(t, "the recording could not be analyzed", userMessage(errors.New("boom")))
}
