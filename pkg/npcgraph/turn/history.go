package turn

// DefaultWindow is the number of messages kept between turns.
const DefaultWindow = 50

// Trim returns the last n messages as a new slice, preserving order.
// If n <= 0, msgs is returned unchanged.
func Trim(msgs []Message, n int) []Message {
	if n <= 0 {
		return msgs
	}
	if len(msgs) < n {
		n = len(msgs)
	}
	out := make([]Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}
