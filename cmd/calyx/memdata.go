package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/interp"
	"github.com/calyx-lang/calyxgo/ir"
)

// memoryDocument is the on-disk shape of a -m data file: cell name to a
// flat array of integer values (spec.md §6 "Data files"). Nested arrays
// (multi-dimensional memories) are not accepted: they fail to unmarshal.
type memoryDocument map[string][]uint64

func loadMemoryData(path string) (memoryDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calyx: reading memory data file: %w", err)
	}
	var doc memoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("calyx: parsing memory data file: %w", err)
	}
	return doc, nil
}

// applyMemoryData seeds every external cell named in doc with its initial
// contents. Only cells already backed by an ExternalMemory (wired by a
// deployment's host-memory setup) can receive data; an external cell with
// no backing store is reported and skipped rather than silently ignored.
func applyMemoryData(logger *slog.Logger, c *ir.Component, prog *flatten.Program, state *interp.State, doc memoryDocument) {
	for _, cell := range c.Cells {
		if !cell.External {
			continue
		}
		values, ok := doc[cell.Name.Name()]
		if !ok {
			continue
		}
		idx, ok := prog.CellIndexOf(cell)
		if !ok {
			continue
		}
		mem := state.Cells[idx].MemBacked
		if mem == nil {
			logger.Warn("calyx: external cell has no host memory backing, skipping initial data",
				slog.String("cell", cell.Name.Name()))
			continue
		}
		for addr, v := range values {
			mem.Write(uint64(addr), v, 8)
		}
	}
}

// dumpMemoryData reads every external cell's current backing store back out
// to path in the same shape loadMemoryData reads, per the -w dump.json
// option.
func dumpMemoryData(c *ir.Component, prog *flatten.Program, state *interp.State, path string, wordsPerCell uint64) error {
	doc := memoryDocument{}
	for _, cell := range c.Cells {
		if !cell.External {
			continue
		}
		idx, ok := prog.CellIndexOf(cell)
		if !ok {
			continue
		}
		mem := state.Cells[idx].MemBacked
		if mem == nil {
			continue
		}
		values := make([]uint64, wordsPerCell)
		for addr := range values {
			values[addr] = mem.Read(uint64(addr), 8)
		}
		doc[cell.Name.Name()] = values
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("calyx: encoding memory dump: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
