package app

import "strings"

// Command is a control request for the driver loop. Keys, the HTTP API and
// the tray all produce Commands; only the loop acts on them.
type Command int

const (
	CmdNone Command = iota
	CmdQuit
	CmdPause
	CmdScreenshot
	CmdClearTrails
)

// KeyEscape is the key code for ESC.
const KeyEscape = 27

func (c Command) String() string {
	switch c {
	case CmdQuit:
		return "quit"
	case CmdPause:
		return "pause"
	case CmdScreenshot:
		return "screenshot"
	case CmdClearTrails:
		return "clear"
	}
	return "none"
}

// KeyCommand maps a key code from the display window to a Command.
// Letters are matched case-insensitively. Unknown keys map to CmdNone.
func KeyCommand(key int) Command {
	if key < 0 {
		return CmdNone
	}

	switch key & 0xFF {
	case KeyEscape:
		return CmdQuit
	case 'p', 'P':
		return CmdPause
	case 's', 'S':
		return CmdScreenshot
	case 'c', 'C':
		return CmdClearTrails
	}
	return CmdNone
}

// ParseCommand resolves a command name as used by the HTTP API.
func ParseCommand(name string) (Command, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quit", "stop":
		return CmdQuit, true
	case "pause", "resume":
		return CmdPause, true
	case "screenshot":
		return CmdScreenshot, true
	case "clear", "clear-trails":
		return CmdClearTrails, true
	}
	return CmdNone, false
}
