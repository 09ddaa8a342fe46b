package debugger

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind discriminates the REPL's command grammar (spec.md §4.10).
type CommandKind int

const (
	CmdStep CommandKind = iota
	CmdContinue
	CmdStepOver
	CmdPrint
	CmdPrintState
	CmdBreak
	CmdDelete
	CmdEnable
	CmdDisable
	CmdWatch
	CmdWhere
	CmdRestart
	CmdExit
	CmdHelp
	CmdInfo
)

// Command is one parsed REPL line.
type Command struct {
	Kind CommandKind

	N      int    // step N
	Target string // step-over target, print path, break/delete/enable/disable id-or-path, print-state cell, watch group
	Bound  int    // step-over bound, 0 means unbounded
	Format string // print /format suffix

	WatchWhen WatchWhen
	PrintSpec string // watch ... with <print-spec>
}

// ParseCommand parses one REPL input line into a Command.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("debugger: empty command")
	}
	verb := strings.ToLower(fields[0])
	rest := fields[1:]

	switch verb {
	case "step":
		n := 1
		if len(rest) > 0 {
			v, err := strconv.Atoi(rest[0])
			if err != nil {
				return Command{}, fmt.Errorf("debugger: step expects an integer cycle count, got %q", rest[0])
			}
			n = v
		}
		return Command{Kind: CmdStep, N: n}, nil

	case "continue", "c":
		return Command{Kind: CmdContinue}, nil

	case "step-over":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: step-over requires a target")
		}
		cmd := Command{Kind: CmdStepOver, Target: rest[0]}
		if len(rest) > 1 {
			b, err := strconv.Atoi(rest[1])
			if err != nil {
				return Command{}, fmt.Errorf("debugger: step-over bound must be an integer, got %q", rest[1])
			}
			cmd.Bound = b
		}
		return cmd, nil

	case "print", "p":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: print requires a path")
		}
		target, format := splitFormat(rest[0])
		return Command{Kind: CmdPrint, Target: target, Format: format}, nil

	case "print-state":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: print-state requires a cell name")
		}
		return Command{Kind: CmdPrintState, Target: rest[0]}, nil

	case "break", "b":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: break requires an id or path")
		}
		return Command{Kind: CmdBreak, Target: rest[0]}, nil

	case "delete":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: delete requires an id or path")
		}
		return Command{Kind: CmdDelete, Target: rest[0]}, nil

	case "enable":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: enable requires an id or path")
		}
		return Command{Kind: CmdEnable, Target: rest[0]}, nil

	case "disable":
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("debugger: disable requires an id or path")
		}
		return Command{Kind: CmdDisable, Target: rest[0]}, nil

	case "watch":
		return parseWatch(rest)

	case "where", "pc":
		return Command{Kind: CmdWhere}, nil

	case "info":
		return Command{Kind: CmdInfo}, nil

	case "restart":
		return Command{Kind: CmdRestart}, nil

	case "exit", "quit", "q":
		return Command{Kind: CmdExit}, nil

	case "help", "?":
		return Command{Kind: CmdHelp}, nil

	default:
		return Command{}, fmt.Errorf("debugger: unrecognized command %q", verb)
	}
}

// splitFormat splits "path/format" into its path and format parts; format is
// "" (meaning the default, unsigned) when no slash is present.
func splitFormat(s string) (path, format string) {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// parseWatch parses "watch <group> [before|after] with <print-spec>".
func parseWatch(rest []string) (Command, error) {
	if len(rest) == 0 {
		return Command{}, fmt.Errorf("debugger: watch requires a group name")
	}
	cmd := Command{Kind: CmdWatch, Target: rest[0], WatchWhen: WatchBefore}
	i := 1
	if i < len(rest) && (rest[i] == "before" || rest[i] == "after") {
		if rest[i] == "after" {
			cmd.WatchWhen = WatchAfter
		}
		i++
	}
	if i < len(rest) && rest[i] == "with" {
		i++
		cmd.PrintSpec = strings.Join(rest[i:], " ")
	}
	return cmd, nil
}
