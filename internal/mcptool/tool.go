// Package mcptool exposes the recognition core as a single Model Context
// Protocol tool, "recognize_audio" (SPEC_FULL.md §6.E: "exposes one MCP
// tool ... that takes a base64 PCM payload and search configuration and
// returns the hypothesis — letting an LLM agent ... invoke the decoder as
// a tool"). It is grounded on the teacher's use of the official MCP Go SDK
// in internal/mcp/mcphost/host.go, mirroring its
// Implementation{Name,Version} naming even though the teacher only ever
// acts as an MCP client — this package is this repository's server side
// of the same SDK.
package mcptool

import (
	"context"
	"encoding/base64"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/decoder"
)

// NewDecoderFunc builds a fresh decoder for one tool call. Each call gets
// its own decoder.Decoder instance (SPEC_FULL.md §5.E: wsserver and
// mcptool "never share one decoder across goroutines").
type NewDecoderFunc func(ctx context.Context) (*decoder.Decoder, error)

// RecognizeAudioParams is the JSON-decoded input for the recognize_audio
// tool.
type RecognizeAudioParams struct {
	// AudioBase64 is raw 16-bit PCM audio, base64-encoded.
	AudioBase64 string `json:"audio_base64"`

	// SampleRate documents the sample rate the audio was captured at. It
	// is informational only: the decoder is already configured for a
	// fixed sample rate at construction time, and a mismatch here is not
	// itself an error.
	SampleRate int `json:"sample_rate,omitempty"`
}

// RecognizeAudioResult is the JSON-encoded output of the recognize_audio
// tool.
type RecognizeAudioResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// NewServer builds an MCP server exposing recognize_audio, backed by a
// fresh decoder per call via newDecoder.
func NewServer(newDecoder NewDecoderFunc) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "pocketsphinx-recognizer",
		Version: "0.1.0",
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "recognize_audio",
		Description: "Recognize speech in a base64-encoded 16-bit PCM audio " +
			"clip and return the best-scoring word hypothesis.",
	}, recognizeAudioHandler(newDecoder))

	return server
}

func recognizeAudioHandler(newDecoder NewDecoderFunc) func(ctx context.Context, req *mcpsdk.CallToolRequest, params RecognizeAudioParams) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, params RecognizeAudioParams) (*mcpsdk.CallToolResult, any, error) {
		if params.AudioBase64 == "" {
			return nil, nil, fmt.Errorf("mcptool: recognize_audio: audio_base64 must not be empty")
		}

		raw, err := base64.StdEncoding.DecodeString(params.AudioBase64)
		if err != nil {
			return nil, nil, fmt.Errorf("mcptool: recognize_audio: decode audio_base64: %w", err)
		}
		samples := decodePCM16(raw)

		dec, err := newDecoder(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("mcptool: recognize_audio: build decoder: %w", err)
		}
		defer dec.Close()

		if err := dec.StartUtt(); err != nil {
			return nil, nil, fmt.Errorf("mcptool: recognize_audio: start utterance: %w", err)
		}
		if len(samples) > 0 {
			if _, err := dec.ProcessRaw(samples); err != nil {
				return nil, nil, fmt.Errorf("mcptool: recognize_audio: process audio: %w", err)
			}
		}
		if err := dec.EndUtt(); err != nil {
			return nil, nil, fmt.Errorf("mcptool: recognize_audio: end utterance: %w", err)
		}

		text, score := dec.Hyp()
		result := RecognizeAudioResult{Text: text, Score: score}

		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		}, result, nil
	}
}

// decodePCM16 interprets data as little-endian 16-bit PCM samples. A
// trailing odd byte, if any, is dropped.
func decodePCM16(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
