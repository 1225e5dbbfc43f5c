package lsp

import (
	"context"
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// handleTextDocumentCompletion handles completion requests
func (s *Server) handleTextDocumentCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse completion params")
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return reply(ctx, protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil)
	}

	result := protocol.CompletionList{
		IsIncomplete: false,
		Items:        doc.Completions(),
	}

	return reply(ctx, result, nil)
}

// handleTextDocumentHover handles hover requests
func (s *Server) handleTextDocumentHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse hover params")
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}

	line := int(params.Position.Line)
	contents, ok := doc.Hover(line)
	if !ok {
		return reply(ctx, nil, nil)
	}

	rng := doc.lineRange(line)
	result := protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: contents,
		},
		Range: &rng,
	}

	return reply(ctx, result, nil)
}
