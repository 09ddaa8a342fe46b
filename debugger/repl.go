package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// REPL drives a Session from line-oriented input, the interactive front end
// to the step/continue/break loop Session implements.
type REPL struct {
	Sess   *Session
	In     io.Reader
	Out    io.Writer
	Prompt string

	titler cases.Caser
}

// NewREPL wires a REPL to sess, reading commands from in and writing all
// output (prompts, command results, watchpoint fires) to out.
func NewREPL(sess *Session, in io.Reader, out io.Writer) *REPL {
	if sess.Out == nil {
		sess.Out = out
	}
	prompt := "(calyx-db) "
	return &REPL{Sess: sess, In: in, Out: out, Prompt: prompt, titler: cases.Title(language.English)}
}

// Run reads commands until the input is exhausted or an "exit" command is
// seen, writing a response after each one.
func (r *REPL) Run() error {
	scanner := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, r.Prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			fmt.Fprintln(r.Out, err)
			continue
		}
		if cmd.Kind == CmdExit {
			return nil
		}
		r.dispatch(cmd)
	}
}

func (r *REPL) dispatch(cmd Command) {
	switch cmd.Kind {
	case CmdStep:
		ran, hit, err := r.Sess.Step(cmd.N)
		r.reportRun(ran, hit, err)

	case CmdContinue:
		ran, hit, err := r.Sess.Continue()
		r.reportRun(ran, hit, err)

	case CmdStepOver:
		ran, err := r.Sess.StepOver(cmd.Target, cmd.Bound)
		if err != nil {
			fmt.Fprintln(r.Out, err)
			return
		}
		fmt.Fprintf(r.Out, "ran %d cycles\n", ran)

	case CmdPrint:
		s, err := r.Sess.PrintPort(cmd.Target, cmd.Format)
		if err != nil {
			fmt.Fprintln(r.Out, err)
			return
		}
		fmt.Fprintln(r.Out, s)

	case CmdPrintState:
		s, err := r.Sess.PrintState(cmd.Target)
		if err != nil {
			fmt.Fprintln(r.Out, err)
			return
		}
		fmt.Fprintln(r.Out, s)

	case CmdBreak:
		ids, err := r.Sess.AddBreakpoint(cmd.Target)
		if err != nil {
			fmt.Fprintln(r.Out, err)
			return
		}
		for _, id := range ids {
			fmt.Fprintf(r.Out, "breakpoint %s set at %s\n", id, cmd.Target)
		}

	case CmdDelete:
		if !r.Sess.DeleteBreakpoint(cmd.Target) {
			fmt.Fprintf(r.Out, "no breakpoint or watchpoint matches %q\n", cmd.Target)
		}

	case CmdEnable:
		if !r.Sess.EnableBreakpoint(cmd.Target) {
			fmt.Fprintf(r.Out, "no breakpoint or watchpoint matches %q\n", cmd.Target)
		}

	case CmdDisable:
		if !r.Sess.DisableBreakpoint(cmd.Target) {
			fmt.Fprintf(r.Out, "no breakpoint or watchpoint matches %q\n", cmd.Target)
		}

	case CmdWatch:
		id := r.Sess.AddWatchpoint(cmd.Target, cmd.WatchWhen, cmd.PrintSpec)
		fmt.Fprintf(r.Out, "watchpoint %s set on %s (%s)\n", id, cmd.Target, cmd.WatchWhen)

	case CmdWhere:
		r.printWhere()

	case CmdRestart:
		r.Sess.Restart()
		fmt.Fprintln(r.Out, "restarted")

	case CmdHelp:
		r.printHelp()

	case CmdInfo:
		r.printBreakpoints()
	}
}

func (r *REPL) reportRun(ran int, hit bool, err error) {
	if err != nil {
		fmt.Fprintln(r.Out, err)
		return
	}
	if hit {
		fmt.Fprintf(r.Out, "ran %d cycles, stopped at breakpoint\n", ran)
		r.printWhere()
		return
	}
	fmt.Fprintf(r.Out, "ran %d cycles\n", ran)
}

func (r *REPL) printWhere() {
	paths := r.Sess.Where()
	if len(paths) == 0 {
		fmt.Fprintln(r.Out, "(no active control nodes)")
		return
	}
	for _, p := range paths {
		fmt.Fprintln(r.Out, p)
	}
}

// printBreakpoints renders the breakpoint and watchpoint tables, titled the
// way a human-facing CLI banner is: "Id", "Path", "Enabled" rather than
// Go field casing.
func (r *REPL) printBreakpoints() {
	t := table.NewWriter()
	t.AppendHeader(table.Row{r.titler.String("id"), r.titler.String("path"), r.titler.String("enabled")})
	for _, bp := range r.Sess.Breakpoints {
		t.AppendRow(table.Row{bp.ID, bp.Path, bp.Enabled})
	}
	fmt.Fprintln(r.Out, t.Render())

	w := table.NewWriter()
	w.AppendHeader(table.Row{r.titler.String("id"), r.titler.String("group"), r.titler.String("when"), r.titler.String("enabled")})
	for _, wp := range r.Sess.Watchpoints {
		w.AppendRow(table.Row{wp.ID, wp.Group, wp.When.String(), wp.Enabled})
	}
	fmt.Fprintln(r.Out, w.Render())
}

func (r *REPL) printHelp() {
	lines := []string{
		"step [n]", "continue", "step-over <target> [bound]",
		"print <cell.port>[/format]", "print-state <cell>",
		"break <path|component::group>", "delete <id|path>",
		"enable <id|path>", "disable <id|path>",
		"watch <group> [before|after] [with <port>[/format]]",
		"where", "info", "restart", "exit",
	}
	for _, l := range lines {
		fmt.Fprintln(r.Out, l)
	}
}
