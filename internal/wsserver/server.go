// Package wsserver restores the "live" decoding use case the distilled
// specification dropped (SPEC_FULL.md §6.E: "the original ships
// gst/livedemo.c and examples/live_portaudio.c/live_pulseaudio.c; this is
// the Go-native equivalent transport"). It accepts a WebSocket connection
// of raw 16-bit PCM frames and streams back partial/final hypotheses as
// JSON, grounded on the teacher's server-side use of
// github.com/coder/websocket (internal/pkg/provider/s2s's
// httptest.NewServer + websocket.Accept pattern).
package wsserver

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/decoder"
)

// NewDecoderFunc builds a fresh decoder for one connection. Per
// SPEC_FULL.md §5.E, wsserver never shares one decoder.Decoder across
// goroutines: each accepted connection gets its own.
type NewDecoderFunc func(ctx context.Context) (*decoder.Decoder, error)

// Config controls partial-result cadence.
type Config struct {
	// PartialEverySamples is how many consumed PCM samples elapse between
	// partial-hypothesis updates sent to the client. 0 disables partial
	// updates; only a final hypothesis is sent per utterance.
	PartialEverySamples int
}

// DefaultConfig sends a partial update roughly twice a second at the
// frontend's default 16kHz sample rate.
func DefaultConfig() Config {
	return Config{PartialEverySamples: 8000}
}

// Server accepts WebSocket connections and streams recognition results.
type Server struct {
	newDecoder NewDecoderFunc
	cfg        Config
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for connection-level errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig overrides the default partial-result cadence.
func WithConfig(cfg Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// New builds a Server that mints a decoder via newDecoder for each
// accepted connection.
func New(newDecoder NewDecoderFunc, opts ...Option) *Server {
	s := &Server{newDecoder: newDecoder, cfg: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP implements http.Handler, accepting one WebSocket connection per
// request and handing it to handleConn.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("wsserver: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	dec, err := s.newDecoder(ctx)
	if err != nil {
		s.logger.Warn("wsserver: decoder construction failed", "err", err)
		conn.Close(websocket.StatusInternalError, "decoder unavailable")
		return
	}
	defer dec.Close()

	if err := s.handleConn(ctx, conn, dec); err != nil {
		s.logger.Debug("wsserver: connection ended", "err", err)
	}
}

// control is one client-sent text frame. "end_utt" finalizes the current
// utterance; "close" ends the session cleanly.
type control struct {
	Type string `json:"type"`
}

// partialResult is a mid-utterance hypothesis update.
type partialResult struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// finalResult is the hypothesis emitted after end_utt.
type finalResult struct {
	Type  string  `json:"type"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// errorResult reports a decode failure without tearing down the
// connection, so the client can retry the next utterance.
type errorResult struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (s *Server) handleConn(ctx context.Context, conn *websocket.Conn, dec *decoder.Decoder) error {
	if err := dec.StartUtt(); err != nil {
		return err
	}
	samplesSincePartial := 0

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		switch msgType {
		case websocket.MessageBinary:
			samples := decodePCM16(data)
			n, err := dec.ProcessRaw(samples)
			if err != nil {
				if werr := writeJSON(ctx, conn, errorResult{Type: "error", Error: err.Error()}); werr != nil {
					return werr
				}
				continue
			}
			samplesSincePartial += n
			if s.cfg.PartialEverySamples > 0 && samplesSincePartial >= s.cfg.PartialEverySamples {
				samplesSincePartial = 0
				text, _ := dec.Hyp()
				if err := writeJSON(ctx, conn, partialResult{Type: "partial", Text: text}); err != nil {
					return err
				}
			}

		case websocket.MessageText:
			var ctrl control
			if err := json.Unmarshal(data, &ctrl); err != nil {
				continue
			}
			switch ctrl.Type {
			case "end_utt":
				if err := dec.EndUtt(); err != nil {
					if werr := writeJSON(ctx, conn, errorResult{Type: "error", Error: err.Error()}); werr != nil {
						return werr
					}
				} else {
					text, score := dec.Hyp()
					if err := writeJSON(ctx, conn, finalResult{Type: "final", Text: text, Score: score}); err != nil {
						return err
					}
				}
				if err := dec.StartUtt(); err != nil {
					return err
				}
				samplesSincePartial = 0
			case "close":
				conn.Close(websocket.StatusNormalClosure, "client requested close")
				return nil
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// decodePCM16 interprets data as little-endian 16-bit PCM samples. A
// trailing odd byte, if any, is dropped.
func decodePCM16(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
