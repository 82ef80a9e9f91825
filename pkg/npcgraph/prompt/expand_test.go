package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpand tests ${var} placeholder expansion.
func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		vars     Vars
		expected string
	}{
		{
			name:     "simple variable",
			input:    "Hello ${name}",
			vars:     Vars{"name": "Raven"},
			expected: "Hello Raven",
		},
		{
			name:     "adjacent variables",
			input:    "${a}${b}${c}",
			vars:     Vars{"a": "1", "b": "2", "c": "3"},
			expected: "123",
		},
		{
			name:     "numeric value",
			input:    "trust: ${trust}",
			vars:     Vars{"trust": 0.5},
			expected: "trust: 0.5",
		},
		{
			name:     "missing kept",
			input:    "Hello ${who}",
			vars:     Vars{},
			expected: "Hello ${who}",
		},
		{
			name:     "bare dollar untouched",
			input:    "costs $5 at ${place}",
			vars:     Vars{"place": "the bridge"},
			expected: "costs $5 at the bridge",
		},
		{
			name:     "empty input",
			input:    "",
			vars:     Vars{"x": "y"},
			expected: "",
		},
	}

	exp := NewExpander()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exp.Expand(tt.input, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestExpand_MissingActions tests each missing-variable behavior.
func TestExpand_MissingActions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := NewExpander(WithMissingAction(MissingEmpty)).Expand("[${x}]", nil)
		require.NoError(t, err)
		assert.Equal(t, "[]", got)
	})

	t.Run("error", func(t *testing.T) {
		_, err := NewExpander(WithMissingAction(MissingError)).Expand("${a} ${b}", Vars{"a": 1})
		var undef *UndefinedVariableError
		require.ErrorAs(t, err, &undef)
		assert.Equal(t, []string{"b"}, undef.Names)
		assert.Equal(t, "undefined variable: b", err.Error())
	})

	t.Run("error lists all", func(t *testing.T) {
		_, err := NewExpander(WithMissingAction(MissingError)).Expand("${a} ${b}", nil)
		assert.EqualError(t, err, "undefined variables: a, b")
	})
}

// TestExpand_Blank tests blank values are replaced by the configured text.
func TestExpand_Blank(t *testing.T) {
	exp := NewExpander(WithBlank("(none)"))

	got, err := exp.Expand("EVENTS: ${events} / GOAL: ${goal}", Vars{"events": "  ", "goal": "hold the bridge"})
	require.NoError(t, err)
	assert.Equal(t, "EVENTS: (none) / GOAL: hold the bridge", got)
}

func TestRender(t *testing.T) {
	tmpl := Template{
		Name:   "critic",
		System: "You are ${npc}'s inner critic.",
		User:   "DRAFT:\n${draft}",
	}

	req, err := NewExpander().Render(tmpl, Vars{"npc": "Raven", "draft": "Go away."})
	require.NoError(t, err)
	assert.Equal(t, "You are Raven's inner critic.", req.System)
	assert.Equal(t, "DRAFT:\nGo away.", req.LastUser())

	_, err = NewExpander(WithMissingAction(MissingError)).Render(tmpl, Vars{"npc": "Raven"})
	assert.ErrorContains(t, err, "template critic: user")
}

func TestVariables(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Variables("${a} ${b} ${a}"))
	assert.Empty(t, Variables("no placeholders"))
}
