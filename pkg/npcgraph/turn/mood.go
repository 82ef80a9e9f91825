package turn

import "sort"

// Known affect dimensions. Unknown names are accepted as well.
const (
	Vigilance = "vigilance"
	Empathy   = "empathy"
	Trust     = "trust"
	Fear      = "fear"
	Anger     = "anger"
	Joy       = "joy"
	Sadness   = "sadness"
	Curiosity = "curiosity"
)

// Dimensions lists the known affect dimensions in a stable order.
var Dimensions = []string{Vigilance, Empathy, Trust, Fear, Anger, Joy, Sadness, Curiosity}

// Mood maps affect dimensions to values in [0,1].
type Mood map[string]float64

// Clamp limits v to [0,1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Set stores a clamped value.
func (m Mood) Set(name string, v float64) {
	m[name] = Clamp(v)
}

// Get returns the value for name, or def when unset.
func (m Mood) Get(name string, def float64) float64 {
	if v, ok := m[name]; ok {
		return v
	}
	return def
}

// Merge clamps and stores every value in update.
func (m Mood) Merge(update map[string]float64) {
	for k, v := range update {
		m.Set(k, v)
	}
}

// Names returns the set dimensions, sorted.
func (m Mood) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy.
func (m Mood) Clone() Mood {
	out := make(Mood, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
