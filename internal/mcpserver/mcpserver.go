// Package mcpserver exposes the speech coordinator as an MCP server over
// stdio, using the official MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
//
// Exactly two tools are published:
//
//   - speak: enqueue text for synthesis and playback; the call returns once
//     the utterance has fully played (or failed).
//   - listen: ask the external dictation automation to start listening.
//
// Tool failures are reported through the MCP error flag; a failing tool call
// never brings the server down.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MindSyncTech/talktocursor/internal/coordinator"
)

// Speaker is the coordinator surface the tool handlers need.
type Speaker interface {
	Speak(ctx context.Context, text string) (<-chan coordinator.Result, error)
	Listen(ctx context.Context) string
}

// SpeakArgs is the input schema for the speak tool.
type SpeakArgs struct {
	// Text is the utterance to synthesize and play.
	Text string `json:"text" jsonschema:"the text to speak aloud"`
}

// ListenArgs is the (empty) input schema for the listen tool.
type ListenArgs struct{}

// Server wraps an MCP server publishing the speak and listen tools.
type Server struct {
	srv     *mcpsdk.Server
	speaker Speaker
	log     *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates the MCP server and registers both tools.
func New(speaker Speaker, version string, opts ...Option) *Server {
	s := &Server{
		speaker: speaker,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	s.srv = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "talktocursor", Version: version},
		nil,
	)
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "speak",
		Description: "Speak the given text aloud. Returns after playback completes.",
	}, s.handleSpeak)
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "listen",
		Description: "Signal the dictation automation to start listening for a voice reply.",
	}, s.handleListen)

	return s
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
// stdout belongs to the protocol; all logging must go to stderr.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio")
	if err := s.srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// handleSpeak enqueues the utterance and blocks until it settles.
func (s *Server) handleSpeak(ctx context.Context, _ *mcpsdk.CallToolRequest, args SpeakArgs) (*mcpsdk.CallToolResult, any, error) {
	ch, err := s.speaker.Speak(ctx, args.Text)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return errorResult(res.Err.Error()), nil, nil
		}
		return textResult(res.Message()), nil, nil
	case <-ctx.Done():
		// The utterance stays queued; only this tool call gives up waiting.
		return errorResult("speak interrupted: " + ctx.Err().Error()), nil, nil
	}
}

// handleListen triggers (or skips) the listen signal.
func (s *Server) handleListen(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListenArgs) (*mcpsdk.CallToolResult, any, error) {
	switch s.speaker.Listen(ctx) {
	case coordinator.ListenTriggered:
		return textResult("listening"), nil, nil
	default:
		return textResult("disabled"), nil, nil
	}
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: true,
	}
}
