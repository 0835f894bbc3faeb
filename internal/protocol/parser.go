package protocol

import "strings"

// lineTrim holds the characters stripped from both ends of a line.
const lineTrim = " \r\n"

// Parse classifies one line.  It never fails: anything malformed comes
// back as ParsingErr with zero fields.
//
// Tokens are separated by exactly one space, so "read  20" carries an
// empty token and is rejected like any other arity or hex error.
func Parse(line string) Command {
	args := strings.Split(strings.Trim(line, lineTrim), " ")

	switch args[0] {
	case CmdWrite:
		if len(args) != 3 {
			return Command{Type: ParsingErr}
		}
		addr, err := ParseHex(args[1])
		if err != nil {
			return Command{Type: ParsingErr}
		}
		data, err := ParseHex(args[2])
		if err != nil {
			return Command{Type: ParsingErr}
		}
		return Command{Type: WriteData, Addr: addr, Data: data}

	case CmdRead:
		if len(args) != 2 {
			return Command{Type: ParsingErr}
		}
		addr, err := ParseHex(args[1])
		if err != nil {
			return Command{Type: ParsingErr}
		}
		return Command{Type: ReadData, Addr: addr}

	case CmdWaitEvent:
		return bare(args, WaitEvent)
	case CmdDebug:
		return bare(args, Debug)
	case CmdDisconnect:
		return bare(args, Disconnected)
	case CmdExit:
		return bare(args, Exit)

	default:
		return Command{Type: ParsingErr}
	}
}

// bare accepts a command that takes no arguments.
func bare(args []string, t MsgType) Command {
	if len(args) != 1 {
		return Command{Type: ParsingErr}
	}
	return Command{Type: t}
}
