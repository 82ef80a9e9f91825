package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/config"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/engine"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

const scriptedReply = "Well met, traveller. What brings you to the road today?"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "npcgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSay_Mock(t *testing.T) {
	out, err := run(t, "say", "--mock", "--log-level", "error", "Good", "morning!")
	require.NoError(t, err)
	assert.Equal(t, scriptedReply+"\n", out)
}

func TestSay_JSON(t *testing.T) {
	out, err := run(t, "say", "--mock", "--json", "--npc", "raven", "-s", "docks",
		"--event", "weather:fog rolls in", "hello")
	require.NoError(t, err)

	var res engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "raven:docks", res.ThreadID)
	assert.Equal(t, scriptedReply, res.ReplyText)
}

func TestSay_Errors(t *testing.T) {
	_, err := run(t, "say", "--mock", "--npc", "nobody", "hello")
	assert.ErrorIs(t, err, engine.ErrUnknownNPC)

	_, err = run(t, "say", "--mock", "--event", "garbled", "hello")
	assert.ErrorContains(t, err, "want source:kind:content")

	_, err = run(t, "say", "--mock", "--log-level", "loud", "hello")
	assert.ErrorContains(t, err, "unknown log level")
}

// TestHistory_SQLite tests that turns persist across invocations.
func TestHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "threads.db")
	cfg := writeConfig(t, "provider: mock\nstore:\n  backend: sqlite\n  path: "+dbPath+"\n")

	_, err := run(t, "say", "-c", cfg, "Good morning!")
	require.NoError(t, err)
	_, err = run(t, "say", "-c", cfg, "Any news from the bridge?")
	require.NoError(t, err)

	out, err := run(t, "history", "-c", cfg, "--json")
	require.NoError(t, err)
	var recs []thread.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "Good morning!", recs[0].InputText)
	assert.Equal(t, "Any news from the bridge?", recs[1].InputText)

	out, err = run(t, "history", "-c", cfg, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "you: Any news from the bridge?")
	assert.Contains(t, out, "Lyra Ironwind: "+scriptedReply)
	assert.NotContains(t, out, "Good morning!")
}

func TestHistory_Empty(t *testing.T) {
	out, err := run(t, "history", "--mock")
	require.NoError(t, err)
	assert.Equal(t, "no turns yet\n", out)
}

func TestSettingsFor(t *testing.T) {
	noEnv := func(string) (string, bool) { return "", false }

	_, err := settingsFor(&globalFlags{}, noEnv)
	assert.ErrorContains(t, err, "requires an api key")

	s, err := settingsFor(&globalFlags{mock: true}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderMock, s.Provider)

	env := func(k string) (string, bool) {
		if k == config.EnvGeminiAPIKey {
			return "key", true
		}
		return "", false
	}
	s, err = settingsFor(&globalFlags{}, env)
	require.NoError(t, err)
	assert.Equal(t, "key", s.APIKey)

	_, err = settingsFor(&globalFlags{configPath: writeConfig(t, "provider: nope\n")}, noEnv)
	assert.ErrorContains(t, err, "unknown provider")
}

func TestBuildStore(t *testing.T) {
	s := config.Defaults()
	store, err := buildStore(s)
	require.NoError(t, err)
	assert.IsType(t, &thread.MemoryStore{}, store)
	require.NoError(t, store.Close())

	s.Store.Backend = "etcd"
	_, err = buildStore(s)
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		raw     string
		want    turn.Event
		wantErr bool
	}{
		{raw: "GM:weather:a storm rolls in", want: turn.Event{Source: "GM", Kind: "weather", Content: "a storm rolls in"}},
		{raw: "weather: fog", want: turn.Event{Source: "GM", Kind: "weather", Content: "fog"}},
		{raw: "bard:song:verse one: the road", want: turn.Event{Source: "bard", Kind: "song", Content: "verse one: the road"}},
		{raw: "nothing", wantErr: true},
		{raw: "kind:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseEvent(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"say", "history", "serve"} {
		assert.True(t, strings.Contains(out, sub), "help should list %s", sub)
	}
}
