// Package mcp exposes a slotflow engine as Model Context Protocol tools, so
// an agent can hold a slot-filling conversation on behalf of a user.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/xid"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/aretw0/slotflow/pkg/runner"
)

const intentsURI = "slotflow://intents"

// ChatResponse is the structured result of the chat tool.
type ChatResponse struct {
	SessionID string         `json:"session_id" jsonschema_description:"Session to pass on the next turn"`
	Answer    string         `json:"answer" jsonschema_description:"Text to show the user"`
	Terminal  bool           `json:"terminal" jsonschema_description:"True when the dialogue ended"`
	Context   map[string]any `json:"context,omitempty" jsonschema_description:"Conversation context after the turn"`
}

type chatArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type resetArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    ports.TurnProcessor
	mcpServer *server.MCPServer
	logger    *slog.Logger
	maxInput  int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxInputBytes bounds the size of a chat utterance.
func WithMaxInputBytes(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.TurnProcessor, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("slotflow-mcp", strings.TrimSpace(slotflow.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on addr using SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send one user utterance to the conversation and get the bot's answer. Omit session_id to start a new session and reuse the returned one on later turns."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user's utterance")),
		mcp.WithString("session_id", mcp.Description("Session id returned by a previous turn")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	resetTool := mcp.NewTool("reset_context",
		mcp.WithDescription("Discard the conversation context of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to reset")),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewTypedToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("list_intents",
		mcp.WithDescription("List the intent groups and their slots."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.engine.Inspect())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args chatArgs) (ChatResponse, error) {
	text, err := runner.SanitizeInput(args.Text, s.maxInput)
	if err != nil {
		s.logger.Warn("MCP chat: input rejected", "error", err, "size", len(args.Text))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	sessionID := strings.TrimSpace(args.SessionID)
	if sessionID == "" {
		sessionID = xid.New().String()
	}

	res, err := s.engine.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		s.logger.Error("MCP chat: turn failed", "error", err, "session_id", sessionID)
		return ChatResponse{}, fmt.Errorf("turn failed: %w", err)
	}

	resp := ChatResponse{
		SessionID: sessionID,
		Answer:    res.Answer,
		Terminal:  res.Terminal(),
	}
	if res.Context != nil {
		resp.Context = res.Context.Snapshot()
	}
	return resp, nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args resetArgs) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(args.SessionID) == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	if err := s.engine.ResetContext(ctx, args.SessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return mcp.NewToolResultText("context reset for session " + args.SessionID), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(intentsURI, "Intent groups",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Inspect())
		if err != nil {
			return nil, fmt.Errorf("failed to inspect graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      intentsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
