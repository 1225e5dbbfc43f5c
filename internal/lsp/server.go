// Package lsp implements a Language Server Protocol server for scene files.
// It checks open scene files as they are edited and publishes wiring
// failures as diagnostics, completes lookup keys and shows what a member
// resolved to on hover.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

// Server implements the LSP server for scene files
type Server struct {
	// conn is the JSON-RPC connection
	conn jsonrpc2.Conn

	// client is the LSP client interface
	client protocol.Client

	logger  *zap.Logger
	through lifecycle.Notification

	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*document

	// Server capabilities
	capabilities protocol.ServerCapabilities

	// cancel is used to signal server shutdown
	cancel context.CancelFunc
}

// NewServer creates a new LSP server instance. Documents are checked through
// the through notification.
func NewServer(logger *zap.Logger, through lifecycle.Notification) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:  logger,
		through: through,
		docs:    make(map[protocol.DocumentURI]*document),
		capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"%", "/"},
				ResolveProvider:   false,
			},
			HoverProvider: true,
		},
	}
}

// Run serves the protocol over rwc until the client exits or ctx is done
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger.Info("starting scene language server")

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn
	s.client = protocol.ClientDispatcher(conn, s.logger)

	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.logger.Info("shutting down scene language server")
	return conn.Close()
}

// handler returns the JSON-RPC handler function
func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply, req)
		case protocol.MethodTextDocumentDidOpen:
			return s.handleTextDocumentDidOpen(ctx, reply, req)
		case protocol.MethodTextDocumentDidChange:
			return s.handleTextDocumentDidChange(ctx, reply, req)
		case protocol.MethodTextDocumentDidClose:
			return s.handleTextDocumentDidClose(ctx, reply, req)
		case protocol.MethodTextDocumentDidSave:
			return s.handleTextDocumentDidSave(ctx, reply, req)
		case protocol.MethodTextDocumentCompletion:
			return s.handleTextDocumentCompletion(ctx, reply, req)
		case protocol.MethodTextDocumentHover:
			return s.handleTextDocumentHover(ctx, reply, req)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse initialize params")
	}

	if params.ClientInfo != nil {
		s.logger.Info("initialize", zap.String("client", params.ClientInfo.Name))
	}

	result := protocol.InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name:    "powerups-lsp",
			Version: "0.1.0",
		},
	}

	return reply(ctx, result, nil)
}

// handleExit handles the exit notification
func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if err := reply(ctx, nil, nil); err != nil {
		s.logger.Debug("error replying to exit", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// handleTextDocumentDidOpen handles document open notifications
func (s *Server) handleTextDocumentDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didOpen params")
	}

	doc := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, doc)

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidChange handles document change notifications
func (s *Server) handleTextDocumentDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didChange params")
	}

	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}

	// Full document sync: the last change holds the whole text
	content := params.ContentChanges[len(params.ContentChanges)-1].Text
	doc := s.update(params.TextDocument.URI, content)
	s.publishDiagnostics(ctx, params.TextDocument.URI, doc)

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidClose handles document close notifications
func (s *Server) handleTextDocumentDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didClose params")
	}

	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidSave handles document save notifications
func (s *Server) handleTextDocumentDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didSave params")
	}

	if doc, ok := s.document(params.TextDocument.URI); ok {
		s.publishDiagnostics(ctx, params.TextDocument.URI, doc)
	}

	return reply(ctx, nil, nil)
}

// update checks content and stores it as the current state of uri
func (s *Server) update(uri protocol.DocumentURI, content string) *document {
	doc := newDocument(string(uri), content, s.through, s.logger)

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()

	return doc
}

func (s *Server) document(uri protocol.DocumentURI) (*document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// publishDiagnostics publishes the diagnostics of a document
func (s *Server) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI, doc *document) {
	params := protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: doc.Diagnostics(),
	}

	if err := s.client.PublishDiagnostics(ctx, &params); err != nil {
		s.logger.Warn("error publishing diagnostics", zap.Error(err))
	}
}

// replyWithError sends an LSP-compliant error response
func (s *Server) replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

// Stdio is the io.ReadWriteCloser over stdin and stdout editors speak to.
type Stdio struct{}

func (Stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (Stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (Stdio) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
