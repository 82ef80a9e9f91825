package turn

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes s as canonical JSON: struct fields in declaration order,
// map keys sorted, no HTML escaping. Marshal of an Unmarshal'd value yields
// the same bytes.
func Marshal(s *State) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(s)); err != nil {
		return nil, fmt.Errorf("encode turn state: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes a state produced by Marshal.
func Unmarshal(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode turn state: %w", err)
	}
	return normalize(&s), nil
}

// normalize makes nil and empty collections encode identically so a
// round trip cannot drift.
func normalize(s *State) *State {
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.Mood == nil {
		s.Mood = Mood{}
	}
	return s
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := *s
	out.Messages = append([]Message{}, s.Messages...)
	out.Events = append([]Event{}, s.Events...)
	out.Mood = s.Mood.Clone()
	out.Scratch.Routing = s.Scratch.Routing.Clone()
	if s.Action != nil {
		a := *s.Action
		a.Audio = append([]byte(nil), s.Action.Audio...)
		if s.Action.Args != nil {
			a.Args = make(map[string]any, len(s.Action.Args))
			for k, v := range s.Action.Args {
				a.Args[k] = v
			}
		}
		out.Action = &a
	}
	return &out
}
