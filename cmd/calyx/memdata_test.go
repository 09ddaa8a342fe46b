package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/interp"
	"github.com/calyx-lang/calyxgo/ir"
)

// buildExternalMemFixture builds a one-cell component whose only cell is a
// comb_mem_d1-shaped @external primitive, wired to nothing, just enough for
// applyMemoryData/dumpMemoryData to find it by name and index.
func buildExternalMemFixture(t *testing.T) (*ir.Component, *flatten.Program) {
	t.Helper()
	c := ir.NewBuilder("withmem").Build()
	table := c.Ident
	pos := diag.Position{}

	mem := c.AddCell(table.Intern("mem", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "comb_mem_d1",
		Params: []ir.Param{{Name: "WIDTH", Value: 8}, {Name: "SIZE", Value: 4}}})
	mem.External = true
	mem.AddPort(table.Intern("addr0", pos), 2, ir.Input)
	mem.AddPort(table.Intern("write_data", pos), 8, ir.Input)
	mem.AddPort(table.Intern("read_data", pos), 8, ir.Output)

	c.Control = ir.NewEmpty()
	ir.AssignNodeIDs(c.Control, 1)

	prog := flatten.Flatten(c)
	return c, prog
}

func TestApplyMemoryDataWritesThroughHostMemory(t *testing.T) {
	c, prog := buildExternalMemFixture(t)
	state := interp.NewState(prog)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mock := NewMockHostMemory(ctrl)
	mock.EXPECT().Write(uint64(0), uint64(10), uint64(8))
	mock.EXPECT().Write(uint64(1), uint64(20), uint64(8))

	idx, ok := prog.CellIndexOf(c.Cell("mem"))
	if !ok {
		t.Fatalf("expected to find cell mem in flattened program")
	}
	state.Cells[idx].MemBacked = mock

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	applyMemoryData(logger, c, prog, state, memoryDocument{"mem": {10, 20}})
}

func TestApplyMemoryDataSkipsCellWithNoBacking(t *testing.T) {
	c, prog := buildExternalMemFixture(t)
	state := interp.NewState(prog)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	applyMemoryData(logger, c, prog, state, memoryDocument{"mem": {1, 2}})

	if logBuf.Len() == 0 {
		t.Errorf("expected a warning logged for an external cell with no host memory backing")
	}
}

func TestDumpMemoryDataReadsThroughHostMemory(t *testing.T) {
	c, prog := buildExternalMemFixture(t)
	state := interp.NewState(prog)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mock := NewMockHostMemory(ctrl)
	mock.EXPECT().Read(uint64(0), uint64(8)).Return(uint64(7))
	mock.EXPECT().Read(uint64(1), uint64(8)).Return(uint64(8))

	idx, ok := prog.CellIndexOf(c.Cell("mem"))
	if !ok {
		t.Fatalf("expected to find cell mem in flattened program")
	}
	state.Cells[idx].MemBacked = mock

	dumpPath := t.TempDir() + "/dump.json"
	if err := dumpMemoryData(c, prog, state, dumpPath, 2); err != nil {
		t.Fatalf("dumpMemoryData: %v", err)
	}

	doc, err := loadMemoryData(dumpPath)
	if err != nil {
		t.Fatalf("loadMemoryData: %v", err)
	}
	if got := doc["mem"]; len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("got %v, want [7 8]", got)
	}
}
