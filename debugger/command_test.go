package debugger_test

import (
	"testing"

	"github.com/calyx-lang/calyxgo/debugger"
)

func TestParseCommandStepDefaultsToOne(t *testing.T) {
	cmd, err := debugger.ParseCommand("step")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Kind != debugger.CmdStep || cmd.N != 1 {
		t.Errorf("got %+v, want step n=1", cmd)
	}
}

func TestParseCommandStepWithCount(t *testing.T) {
	cmd, err := debugger.ParseCommand("step 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.N != 5 {
		t.Errorf("got N=%d, want 5", cmd.N)
	}
}

func TestParseCommandStepRejectsNonInteger(t *testing.T) {
	if _, err := debugger.ParseCommand("step abc"); err == nil {
		t.Fatalf("expected an error for a non-integer step count")
	}
}

func TestParseCommandPrintSplitsFormat(t *testing.T) {
	cmd, err := debugger.ParseCommand("print a.out/signed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Target != "a.out" || cmd.Format != "signed" {
		t.Errorf("got target=%q format=%q", cmd.Target, cmd.Format)
	}
}

func TestParseCommandPrintWithoutFormat(t *testing.T) {
	cmd, err := debugger.ParseCommand("print a.out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Target != "a.out" || cmd.Format != "" {
		t.Errorf("got target=%q format=%q", cmd.Target, cmd.Format)
	}
}

func TestParseCommandWatchDefaultsToBefore(t *testing.T) {
	cmd, err := debugger.ParseCommand("watch do_add with x.out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Target != "do_add" || cmd.WatchWhen != debugger.WatchBefore || cmd.PrintSpec != "x.out" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseCommandWatchAfter(t *testing.T) {
	cmd, err := debugger.ParseCommand("watch do_add after with x.out/unsigned")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.WatchWhen != debugger.WatchAfter || cmd.PrintSpec != "x.out/unsigned" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseCommandUnknownVerb(t *testing.T) {
	if _, err := debugger.ParseCommand("frobnicate"); err == nil {
		t.Fatalf("expected an error for an unrecognized verb")
	}
}

func TestParseCommandEmptyLine(t *testing.T) {
	if _, err := debugger.ParseCommand("   "); err == nil {
		t.Fatalf("expected an error for an empty command")
	}
}

func TestParseCommandAliases(t *testing.T) {
	cases := map[string]debugger.CommandKind{
		"c":    debugger.CmdContinue,
		"b foo": debugger.CmdBreak,
		"p a.out": debugger.CmdPrint,
		"pc":   debugger.CmdWhere,
		"q":    debugger.CmdExit,
	}
	for line, want := range cases {
		cmd, err := debugger.ParseCommand(line)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", line, err)
		}
		if cmd.Kind != want {
			t.Errorf("%q: got kind %v, want %v", line, cmd.Kind, want)
		}
	}
}
