package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreamble(t *testing.T) {
	p := Default
	p.Normalize()

	pre := p.Preamble()
	assert.Contains(t, pre, "Name: Lyra Ironwind")
	assert.Contains(t, pre, "Traits: Suspicious, Observant, Loyal, Pragmatic")
	assert.Contains(t, pre, "Goals: Pay off the debt to the Guild, Protect the caravan route")
	assert.Contains(t, pre, "Voice mode: "+DefaultSpokenModeHint)
}

func TestSheet(t *testing.T) {
	assert.Equal(t, "Name: X\nBackstory: N/A\nTraits: N/A", Persona{Name: "X"}.Sheet())
}

func TestNormalize(t *testing.T) {
	p := Persona{Name: "Brother Calem"}
	p.Normalize()
	assert.Equal(t, "brother", p.ID)
	assert.Equal(t, DefaultSpeechStyle, p.SpeechStyle)
	assert.Equal(t, DefaultSpokenModeHint, p.SpokenModeHint)

	blank := Persona{Name: "   "}
	assert.NotPanics(t, blank.Normalize)
	assert.ErrorIs(t, blank.Validate(), ErrNoName)
}

func TestVoiceInstructions(t *testing.T) {
	assert.Empty(t, Persona{Name: "x", SpeechStyle: "curt"}.VoiceInstructions())

	raven, ok := BuiltinCatalog().Get("raven")
	require.True(t, ok)
	vi := raven.VoiceInstructions()
	assert.Contains(t, vi, "Accent: rural Kentucky.")
	assert.Contains(t, vi, "Speech style: ")
}

func TestCatalog(t *testing.T) {
	cat := BuiltinCatalog()
	assert.Equal(t, []string{"ezra", "kira", "lyra", "raven"}, cat.IDs())

	_, ok := cat.Get("nobody")
	assert.False(t, ok)

	_, err := NewCatalog(Persona{Name: "A", ID: "a"}, Persona{Name: "B", ID: "a"}, Persona{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoName)
	assert.ErrorContains(t, err, `duplicate persona id "a"`)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		ids     []string
		wantErr bool
	}{
		{
			name:    "single persona",
			content: "name: Mira Dusk\ntraits: [Sarcastic, Cautious]\nvoice:\n  id: mira_01\n",
			ids:     []string{"mira"},
		},
		{
			name:    "list of personas",
			content: "- id: calem\n  name: Brother Calem\n- name: Mira Dusk\n",
			ids:     []string{"calem", "mira"},
		},
		{
			name:    "json",
			content: `{"id": "mira", "name": "Mira Dusk"}`,
			ids:     []string{"mira"},
		},
		{
			name:    "nameless",
			content: "backstory: nobody\n",
			wantErr: true,
		},
		{
			name:    "garbage",
			content: "name: [unclosed",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "persona"+string(rune('a'+i))+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cat, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ids, cat.IDs())
		})
	}
}
