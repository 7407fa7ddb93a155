package link

import "strings"

// Command is a decoded remote-control token. The remote sends each press as
// an ASCII payload in a characteristic notification.
type Command string

const (
	CmdUp     Command = "UP"
	CmdDown   Command = "DOWN"
	CmdSelect Command = "SELECT"
)

// ParseCommand decodes a notification payload into a Command. Payloads are
// matched after trimming trailing whitespace/NULs some firmwares append.
// Unrecognized payloads return ok=false and are dropped by the caller.
func ParseCommand(payload []byte) (Command, bool) {
	token := strings.TrimRight(string(payload), "\x00\r\n ")
	switch Command(token) {
	case CmdUp, CmdDown, CmdSelect:
		return Command(token), true
	default:
		return "", false
	}
}
