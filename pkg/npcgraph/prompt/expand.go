// Package prompt renders the ${var} templates NPC stages send to the
// text generator.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/llm"
)

// varPattern matches ${varname}; varname can contain alphanumeric and underscore.
var varPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Vars maps placeholder names to values. Values are formatted with %v.
type Vars map[string]any

// MissingAction determines what happens when a placeholder has no value.
type MissingAction int

const (
	// MissingKeep leaves the placeholder as-is.
	MissingKeep MissingAction = iota
	// MissingEmpty replaces the placeholder with the empty string.
	MissingEmpty
	// MissingError makes Expand return an *UndefinedVariableError.
	MissingError
)

// Expander expands ${var} placeholders.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	blank         string
}

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets the behavior for placeholders with no value.
func WithMissingAction(a MissingAction) Option {
	return func(e *Expander) { e.missingAction = a }
}

// WithBlank sets the text substituted for values that render blank,
// e.g. "(none)". The default substitutes nothing.
func WithBlank(text string) Option {
	return func(e *Expander) { e.blank = text }
}

// NewExpander creates an Expander. Default: MissingKeep, no blank text.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingKeep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand expands placeholders in s.
//
// Example:
//
//	exp := prompt.NewExpander(prompt.WithBlank("(none)"))
//	out, err := exp.Expand("EVENTS: ${events}", prompt.Vars{"events": ""})
//	// out: "EVENTS: (none)"
func (e *Expander) Expand(s string, vars Vars) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		val, ok := vars[name]
		if !ok {
			switch e.missingAction {
			case MissingEmpty:
				return ""
			case MissingError:
				missing = append(missing, name)
				return match
			default:
				return match
			}
		}
		text := fmt.Sprintf("%v", val)
		if strings.TrimSpace(text) == "" && e.blank != "" {
			return e.blank
		}
		return text
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// UndefinedVariableError is returned when MissingError is set and
// one or more placeholders have no value.
type UndefinedVariableError struct {
	// Names is the list of undefined variable names.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Template is a system instruction plus a user message.
type Template struct {
	Name   string
	System string
	User   string
}

// Render expands both parts of t into a generation request.
func (e *Expander) Render(t Template, vars Vars) (llm.Request, error) {
	system, err := e.Expand(t.System, vars)
	if err != nil {
		return llm.Request{}, fmt.Errorf("template %s: system: %w", t.Name, err)
	}
	user, err := e.Expand(t.User, vars)
	if err != nil {
		return llm.Request{}, fmt.Errorf("template %s: user: %w", t.Name, err)
	}
	return llm.Prompt(system, user), nil
}

// Variables returns the distinct placeholder names in s, in order of
// first appearance.
func Variables(s string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
