package lsp

import (
	"errors"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/internal/inspect"
	"github.com/conduit-lang/powerups/runtime/autonode"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

const source = "powerups"

// document is an open scene file and the report of its last check
type document struct {
	lines  []string
	report *inspect.Report
}

func newDocument(name, content string, through lifecycle.Notification, logger *zap.Logger) *document {
	return &document{
		lines:  strings.Split(content, "\n"),
		report: inspect.CheckSource(name, strings.NewReader(content), through, logger),
	}
}

// Diagnostics returns one diagnostic per failed subject, or one for the
// whole file when it does not load.
func (d *document) Diagnostics() []protocol.Diagnostic {
	out := []protocol.Diagnostic{}

	if d.report.Err != nil {
		out = append(out, protocol.Diagnostic{
			Range:    d.lineRange(0),
			Severity: protocol.DiagnosticSeverityError,
			Code:     "scene",
			Source:   source,
			Message:  d.report.Error,
		})
		return out
	}

	for _, sr := range d.report.Subjects {
		if sr.Err == nil {
			continue
		}

		diag := protocol.Diagnostic{
			Range:    d.lineRange(0),
			Severity: protocol.DiagnosticSeverityError,
			Code:     "wiring",
			Source:   source,
			Message:  fmt.Sprintf("%s: %s", sr.Node, sr.Error),
		}

		var werr *autonode.WiringError
		if errors.As(sr.Err, &werr) {
			diag.Range = d.lineRange(d.memberLine(werr.Member))
			switch werr.Kind {
			case autonode.MissingTarget:
				diag.Code = "missing-target"
			case autonode.TypeMismatch:
				diag.Code = "type-mismatch"
			}
		}
		out = append(out, diag)
	}
	return out
}

// Completions offers every key that resolves in the scene
func (d *document) Completions() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(d.report.Candidates))
	for _, key := range d.report.Candidates {
		kind := protocol.CompletionItemKindReference
		detail := "node path"
		if strings.HasPrefix(key, "%") {
			detail = "unique node"
		} else if !strings.Contains(key, "/") {
			kind = protocol.CompletionItemKindValue
			detail = "node name"
		}
		items = append(items, protocol.CompletionItem{
			Label:            key,
			Kind:             kind,
			Detail:           detail,
			InsertText:       key,
			InsertTextFormat: protocol.InsertTextFormatPlainText,
		})
	}
	return items
}

// Hover describes what the member declared on line resolved to, if any
func (d *document) Hover(line int) (string, bool) {
	name, ok := memberName(d.lineText(line))
	if !ok {
		return "", false
	}

	var parts []string
	for _, sr := range d.report.Subjects {
		for _, m := range sr.Members {
			if m.Name == name {
				parts = append(parts, fmt.Sprintf("**%s** on `%s`: key `%s` resolves to `%s`", m.Name, sr.Node, m.Key, m.Target))
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// memberLine finds the line declaring member, or 0
func (d *document) memberLine(member string) int {
	for i, line := range d.lines {
		if name, ok := memberName(line); ok && name == member {
			return i
		}
	}
	return 0
}

func (d *document) lineText(line int) string {
	if line < 0 || line >= len(d.lines) {
		return ""
	}
	return d.lines[line]
}

func (d *document) lineRange(line int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line), Character: 0},
		End:   protocol.Position{Line: uint32(line), Character: uint32(len(d.lineText(line)))},
	}
}

// memberName extracts NAME from a "- name: NAME" or "name: NAME" line
func memberName(line string) (string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
	value, ok := strings.CutPrefix(line, "name:")
	if !ok {
		return "", false
	}
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	return value, value != ""
}
