// Package protocol implements the line-oriented text protocol spoken
// between test clients and the wishbone simulation.
//
// One command per line, every number in hexadecimal without a leading
// "0x", every response terminated by '\n':
//
//	CLI: write 1000 deadbeef      (no response)
//	CLI: read 20
//	SRV: cafebabe
//	CLI: wait_event
//	SRV: event evt1
//	CLI: debug                    (no response, dump on the server side)
//	CLI: disconnect               (no response, socket closed)
//	CLI: exit                     (no response, simulation ends)
//
// Lines the server cannot parse are dropped without a reply.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command words.
const (
	CmdWrite      = "write"
	CmdRead       = "read"
	CmdWaitEvent  = "wait_event"
	CmdDebug      = "debug"
	CmdDisconnect = "disconnect"
	CmdExit       = "exit"
)

// EventPrefix starts every event notification sent to the client.
const EventPrefix = "event "

// MsgType classifies one received line.  The numeric values follow the
// order the simulation side declares them in.
type MsgType int

const (
	ReadData MsgType = iota
	WriteData
	WaitEvent
	Debug
	Disconnected
	ParsingErr
	Exit

	// NumMsgTypes is the number of message kinds.
	NumMsgTypes = int(Exit) + 1
)

var msgTypeNames = [NumMsgTypes]string{
	ReadData:     "read_data",
	WriteData:    "write_data",
	WaitEvent:    "wait_event",
	Debug:        "debug",
	Disconnected: "disconnected",
	ParsingErr:   "parsing_err",
	Exit:         "exit",
}

func (t MsgType) String() string {
	if t >= 0 && int(t) < NumMsgTypes {
		return msgTypeNames[t]
	}
	return fmt.Sprintf("MsgType(%d)", int(t))
}

// Command is the result of parsing one line.  Addr is set for ReadData
// and WriteData, Data only for WriteData.
type Command struct {
	Type MsgType
	Addr uint32
	Data uint32
}

// Line renders c in its canonical wire form, without the trailing
// newline.  ParsingErr has no wire form and yields "".
func (c Command) Line() string {
	switch c.Type {
	case WriteData:
		return fmt.Sprintf("%s %x %x", CmdWrite, c.Addr, c.Data)
	case ReadData:
		return fmt.Sprintf("%s %x", CmdRead, c.Addr)
	case WaitEvent:
		return CmdWaitEvent
	case Debug:
		return CmdDebug
	case Disconnected:
		return CmdDisconnect
	case Exit:
		return CmdExit
	default:
		return ""
	}
}

// HasReply reports whether the server answers a command of this kind.
func (t MsgType) HasReply() bool {
	return t == ReadData || t == WaitEvent
}

// FormatReadResponse renders the reply to a read command.
func FormatReadResponse(word uint32) string {
	return fmt.Sprintf("%08x\n", word)
}

// FormatEvent renders an event notification.
func FormatEvent(name string) string {
	return EventPrefix + name + "\n"
}

// ParseReadResponse is the inverse of FormatReadResponse.
func ParseReadResponse(line string) (uint32, error) {
	s := strings.TrimRight(line, "\r\n")
	if len(s) != 8 || s[0] == '+' {
		return 0, fmt.Errorf("read response %q is not 8 hex digits", s)
	}
	return ParseHex(s)
}

// ParseEvent is the inverse of FormatEvent.
func ParseEvent(line string) (string, error) {
	s := strings.TrimRight(line, "\r\n")
	name, ok := strings.CutPrefix(s, EventPrefix)
	if !ok {
		return "", fmt.Errorf("event response %q lacks %q prefix", s, EventPrefix)
	}
	return name, nil
}

// ParseHex parses a 32-bit hexadecimal number.  Digits are
// case-insensitive and a single leading '+' is allowed; "0x", '-' and
// separators are rejected.
func ParseHex(s string) (uint32, error) {
	digits := strings.TrimPrefix(s, "+")
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, fmt.Errorf("invalid hex number %q", s)
	}
	n, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex number %q", s)
	}
	return uint32(n), nil
}
