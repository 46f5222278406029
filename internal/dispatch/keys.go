package dispatch

// KeyEvent is one already-decoded physical key press. Key follows the
// browser KeyboardEvent.key naming ("F9", "Enter", "ArrowDown", "+", "5").
// InInput reports whether a text input currently has native focus, which
// suppresses most non-global shortcuts.
type KeyEvent struct {
	Key     string
	Ctrl    bool
	Meta    bool
	Shift   bool
	InInput bool
}

func (e KeyEvent) modified() bool {
	return e.Ctrl || e.Meta
}

// digitQuantity maps keys "1".."9" to their quantity, or 0 for other keys.
func digitQuantity(key string) int {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0
	}
	return int(key[0] - '0')
}
