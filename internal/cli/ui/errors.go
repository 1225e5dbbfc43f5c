package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/powerups/runtime/autonode"
)

// Level represents the severity of a diagnostic
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Diagnostic configures a formatted message
type Diagnostic struct {
	Level       Level
	Context     string
	Problem     string
	Consequence string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// FormatError renders a diagnostic with its suggestions and hints.
//
// Example output:
//
//	❌ MISSING TARGET: Player._camera
//	   Nothing in the graph answers to key '%Camra'.
//
//	   Did you mean: %Camera?
//
//	   → Check the member's path or mark the target node unique
func FormatError(d Diagnostic) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch d.Level {
	case LevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case LevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}

	if d.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if d.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(d.Context))
		bodyColor.Fprintf(&b, "   %s\n", d.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, d.Problem)
	}

	if d.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", d.Consequence)
	}

	if len(d.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if d.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(d.Suggestions, ", "))
	}

	if len(d.Hints) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if d.NoColor {
			cyan.DisableColor()
		}
		for _, hint := range d.Hints {
			cyan.Fprintf(&b, "   → %s\n", hint)
		}
	}

	return b.String()
}

// WriteError writes a formatted diagnostic to the writer
func WriteError(w io.Writer, d Diagnostic) {
	fmt.Fprint(w, FormatError(d))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// WiringError renders an error returned while wiring. Missing targets are
// matched against candidates, the keys that do resolve, for suggestions.
func WiringError(err error, candidates []string, noColor bool) string {
	var werr *autonode.WiringError
	if !errors.As(err, &werr) {
		return FormatError(Diagnostic{
			Context: "WIRING FAILED",
			Problem: err.Error(),
			NoColor: noColor,
		})
	}

	member := werr.Subject + "." + werr.Member
	switch werr.Kind {
	case autonode.MissingTarget:
		return FormatError(Diagnostic{
			Context:     "MISSING TARGET: " + member,
			Problem:     fmt.Sprintf("Nothing in the graph answers to key '%s'.", werr.Key),
			Suggestions: FindSimilar(werr.Key, candidates, 0),
			Hints: []string{
				"Check the member's path or mark the target node unique",
				"List lookup keys: powerups derive <member>",
			},
			NoColor: noColor,
		})
	default:
		return FormatError(Diagnostic{
			Context:     "TYPE MISMATCH: " + member,
			Problem:     fmt.Sprintf("'%s' is %s, expected %s.", werr.Key, werr.Found, werr.Expected),
			Consequence: "No capability view of the target satisfies the member either.",
			Hints: []string{
				"Declare a capability for the target type in the scene file",
			},
			NoColor: noColor,
		})
	}
}

// SceneError renders a scene loading failure
func SceneError(path string, err error, noColor bool) string {
	return FormatError(Diagnostic{
		Context: "SCENE ERROR",
		Problem: fmt.Sprintf("Cannot load '%s': %v", path, err),
		Hints: []string{
			"Get help: powerups check --help",
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(Diagnostic{
		Context: "CONFIGURATION ERROR",
		Problem: message,
		Hints: []string{
			"View config: cat powerups.yml",
			"Get help: powerups --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(Diagnostic{
		Level:   LevelWarning,
		Problem: message,
		NoColor: noColor,
	})
}
