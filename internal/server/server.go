package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/pkg/audio"
	"github.com/RyanBlaney/speech-analyzer/pkg/decode"
	"github.com/RyanBlaney/speech-analyzer/pkg/report"
	"github.com/RyanBlaney/speech-analyzer/pkg/speech"
)

// UploadField is the multipart field carrying the recording
const UploadField = "audio"

// multipart parts above this size spill to disk
const multipartMemory = 8 << 20

//go:embed templates/*.html
var templateFS embed.FS

// Analyzer turns a decoded signal into a report
type Analyzer interface {
	Analyze(sig *audio.Signal) (*speech.Report, error)
}

// Config contains server settings
type Config struct {
	Server   configs.ServerConfig
	Output   configs.OutputConfig
	Logger   logging.Logger
	Registry *prometheus.Registry // nil creates a private registry
}

// Server is the upload UI for single recordings
type Server struct {
	cfg      configs.ServerConfig
	output   configs.OutputConfig
	decoder  decode.Decoder
	analyzer Analyzer
	logger   logging.Logger
	metrics  *Metrics
	page     *template.Template
	handler  http.Handler
}

// pageData feeds the page template
type pageData struct {
	Accepted string
	Accept   string
	Error    string
	Result   *resultView
}

type resultView struct {
	AudioURI template.URL
	Waveform template.HTML
	Level    string
	Sections []report.Section
}

// New creates a server
func New(cfg *Config, decoder decode.Decoder, analyzer Analyzer) (*Server, error) {
	if cfg == nil {
		cfg = &Config{
			Server: configs.GetDefaultServerConfig(),
			Output: configs.GetDefaultOutputConfig(),
		}
	}
	if decoder == nil || analyzer == nil {
		return nil, fmt.Errorf("decoder and analyzer are required")
	}

	page, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithFields(logging.Fields{
			"component": "upload_server",
		})
	}

	s := &Server{
		cfg:      cfg.Server,
		output:   cfg.Output,
		decoder:  decoder,
		analyzer: analyzer,
		logger:   logger,
		metrics:  NewMetrics(cfg.Registry),
		page:     page,
	}
	s.handler = s.routes()

	return s, nil
}

func (s *Server) routes() http.Handler {
	limit := RateLimit(s.cfg.RateLimit, s.cfg.RateBurst, func(*http.Request) {
		s.metrics.RecordFailure("rate_limited")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /analyze", limit(http.HandlerFunc(s.handleAnalyze)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Observe wraps Recovery so recovered panics are still counted
	return Chain(mux,
		RequestID(),
		Observe(s.logger, s.metrics),
		Recovery(s.logger),
	)
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting upload server", logging.Fields{
			"addr": listener.Addr().String(),
		})
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("upload server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("Shutting down upload server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("upload server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.logger.WithFields(logging.Fields{
		"function":   "handleAnalyze",
		"request_id": RequestIDFromContext(r.Context()),
	})

	tooLargeMessage := fmt.Sprintf("upload exceeds the %s limit", byteSize(s.cfg.MaxUploadBytes))
	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.fail(w, http.StatusRequestEntityTooLarge, "too_large", tooLargeMessage)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, http.StatusRequestEntityTooLarge, "too_large", tooLargeMessage)
			return
		}
		s.fail(w, http.StatusBadRequest, "bad_request", "expected a multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "missing_file", "no audio file was uploaded")
		return
	}
	defer file.Close()

	format, err := uploadFormat(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "unsupported_format", err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}

	rep, sig, err := s.analyzeUpload(r.Context(), data, format)
	if err != nil {
		logger.Warn("Upload analysis failed", logging.Fields{
			"filename": header.Filename,
			"format":   string(format),
			"error":    err.Error(),
		})
		s.fail(w, http.StatusUnprocessableEntity, failureReason(err), userMessage(err))
		return
	}

	view := &resultView{
		AudioURI: template.URL("data:" + format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)),
		Level:    string(rep.Assessment.Level),
		Sections: report.Sections(rep, s.output.Precision),
	}

	var svg bytes.Buffer
	if err := report.Waveform(sig, &svg, s.output.WaveformWidth, s.output.WaveformHeight); err != nil {
		logger.Warn("Waveform rendering failed", logging.Fields{"error": err.Error()})
	} else {
		markup := svg.String()
		// inline markup starts at the svg element, without the XML prolog
		if i := strings.Index(markup, "<svg"); i > 0 {
			markup = markup[i:]
		}
		view.Waveform = template.HTML(markup)
	}

	s.metrics.RecordAnalysis(string(rep.Assessment.Level), rep.Metrics.ClarityScore, len(data), time.Since(start))
	logger.Info("Upload analyzed", logging.Fields{
		"filename":      header.Filename,
		"format":        string(format),
		"bytes":         len(data),
		"clarity_score": rep.Metrics.ClarityScore,
		"level":         string(rep.Assessment.Level),
		"duration_ms":   time.Since(start).Milliseconds(),
	})

	s.render(w, http.StatusOK, pageData{Result: view})
}

// analyzeUpload stores the upload in a temporary file for the decoder.
// The file is removed before returning.
func (s *Server) analyzeUpload(ctx context.Context, data []byte, format decode.Format) (*speech.Report, *audio.Signal, error) {
	tmp, err := os.CreateTemp("", "speech-upload-*"+format.Extension())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to store upload: %w", err)
	}

	sig, err := s.decoder.Decode(ctx, tmp.Name(), format)
	if err != nil {
		return nil, nil, err
	}

	rep, err := s.analyzer.Analyze(sig)
	if err != nil {
		return nil, nil, err
	}
	return rep, sig, nil
}

// uploadFormat prefers the file extension and falls back to the declared
// content type, since browsers often send a generic type for FLAC
func uploadFormat(filename, contentType string) (decode.Format, error) {
	if filepath.Ext(filename) != "" {
		if format, err := decode.FormatFromPath(filename); err == nil {
			return format, nil
		}
	}
	if contentType != "" {
		if format, err := decode.ParseFormat(contentType); err == nil {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported file type %q: upload a %s file", filename, acceptedList())
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, decode.ErrDecode):
		return "decode_failed"
	default:
		return "analysis_failed"
	}
}

// userMessage is the part of an analysis error that is safe to show. The
// wrapped cause may carry temporary paths or decoder output and is only logged.
func userMessage(err error) string {
	var de *decode.DecodeError
	if errors.As(err, &de) {
		return de.Message
	}
	var ie *audio.InvalidInputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return "the recording could not be analyzed"
}

func (s *Server) fail(w http.ResponseWriter, status int, reason, message string) {
	s.metrics.RecordFailure(reason)
	s.render(w, status, pageData{Error: message})
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Accepted = acceptedList()
	data.Accept = acceptAttr()

	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "page", data); err != nil {
		s.logger.Error(err, "Failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func byteSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func acceptedList() string {
	names := make([]string, 0, len(decode.SupportedFormats()))
	for _, f := range decode.SupportedFormats() {
		names = append(names, f.String())
	}
	return strings.Join(names, "/")
}

func acceptAttr() string {
	var parts []string
	for _, f := range decode.SupportedFormats() {
		parts = append(parts, f.Extension(), f.MIMEType())
	}
	return strings.Join(parts, ",")
}
