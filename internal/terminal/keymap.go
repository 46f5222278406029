package terminal

import (
	"strings"

	"pos_core/internal/dispatch"
)

// parseKeyEvent turns one typed token into a key event. Tokens mirror the
// keys a cashier would press on a real keyboard: "f1".."f9", "up", "down",
// "left", "right", "home", "end", "enter", "esc", "tab", "del", "+", "-",
// "?", single digits, and chords like "ctrl+shift+del" or "ctrl+l".
func parseKeyEvent(token string) (dispatch.KeyEvent, bool) {
	var ev dispatch.KeyEvent

	parts := strings.Split(strings.ToLower(strings.TrimSpace(token)), "+")
	// A bare "+" splits into empty parts; treat it as the plus key.
	if strings.TrimSpace(token) == "+" {
		return dispatch.KeyEvent{Key: "+"}, true
	}

	for i, part := range parts {
		isLast := i == len(parts)-1
		switch part {
		case "ctrl":
			ev.Ctrl = true
			continue
		case "cmd", "meta":
			ev.Meta = true
			continue
		case "shift":
			ev.Shift = true
			continue
		}
		if !isLast {
			return dispatch.KeyEvent{}, false
		}
		key, ok := keyName(part)
		if !ok {
			return dispatch.KeyEvent{}, false
		}
		ev.Key = key
	}

	if ev.Key == "" {
		return dispatch.KeyEvent{}, false
	}
	return ev, true
}

func keyName(part string) (string, bool) {
	switch part {
	case "up":
		return "ArrowUp", true
	case "down":
		return "ArrowDown", true
	case "left":
		return "ArrowLeft", true
	case "right":
		return "ArrowRight", true
	case "home":
		return "Home", true
	case "end":
		return "End", true
	case "enter":
		return "Enter", true
	case "esc", "escape":
		return "Escape", true
	case "tab":
		return "Tab", true
	case "del", "delete":
		return "Delete", true
	case "backspace":
		return "Backspace", true
	case "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9":
		return strings.ToUpper(part), true
	case "-", "_", "=", "?":
		return part, true
	}
	if len(part) == 1 && (part[0] >= '0' && part[0] <= '9' || part[0] >= 'a' && part[0] <= 'z') {
		return part, true
	}
	return "", false
}

// looksLikeBarcode reports whether a full input line should be treated as a
// scanner read rather than key tokens. Scanners emit the digits followed by
// Enter, so any all-digit line of EAN-ish length qualifies.
func looksLikeBarcode(line string) bool {
	if len(line) < 6 {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
