package interp

import "fmt"

// Primitive computes a combinational cell's output ports from its input
// ports by name. A nil Primitive leaves an instance's outputs untouched
// (used for cells, like std_reg, whose output is stateful and only changes
// during Commit).
type Primitive func(inputs map[string]uint64) map[string]uint64

// Registry maps a primitive name to its combinational behavior, the
// generalization of program/isa.go's ISA.nameToBehavior map from "CGRA
// opcode -> instruction body" to "primitive name -> port function".
var Registry = map[string]Primitive{
	"std_add":     binOp(func(a, b uint64) uint64 { return a + b }),
	"std_sub":     binOp(func(a, b uint64) uint64 { return a - b }),
	"std_and":     binOp(func(a, b uint64) uint64 { return a & b }),
	"std_or":      binOp(func(a, b uint64) uint64 { return a | b }),
	"std_xor":     binOp(func(a, b uint64) uint64 { return a ^ b }),
	"std_lsh":     binOp(func(a, b uint64) uint64 { return a << b }),
	"std_rsh":     binOp(func(a, b uint64) uint64 { return a >> b }),
	"std_not":     unaryOp(func(a uint64) uint64 { return ^a }),
	"std_eq":      cmpOp(func(a, b uint64) bool { return a == b }),
	"std_neq":     cmpOp(func(a, b uint64) bool { return a != b }),
	"std_lt":      cmpOp(func(a, b uint64) bool { return a < b }),
	"std_gt":      cmpOp(func(a, b uint64) bool { return a > b }),
	"std_le":      cmpOp(func(a, b uint64) bool { return a <= b }),
	"std_ge":      cmpOp(func(a, b uint64) bool { return a >= b }),
	"std_wire":    func(in map[string]uint64) map[string]uint64 { return map[string]uint64{"out": in["in"]} },
	"std_mux":     mux,
}

func binOp(f func(a, b uint64) uint64) Primitive {
	return func(in map[string]uint64) map[string]uint64 {
		return map[string]uint64{"out": f(in["left"], in["right"])}
	}
}

func unaryOp(f func(a uint64) uint64) Primitive {
	return func(in map[string]uint64) map[string]uint64 {
		return map[string]uint64{"out": f(in["in"])}
	}
}

func cmpOp(f func(a, b uint64) bool) Primitive {
	return func(in map[string]uint64) map[string]uint64 {
		var v uint64
		if f(in["left"], in["right"]) {
			v = 1
		}
		return map[string]uint64{"out": v}
	}
}

func mux(in map[string]uint64) map[string]uint64 {
	if in["sel"] != 0 {
		return map[string]uint64{"out": in["tru"]}
	}
	return map[string]uint64{"out": in["fal"]}
}

// PipelinedOp identifies a stateful pipelined-math primitive (std_mult_pipe,
// std_div_pipe) by name and depth, grounded on
// interp/src/primitives/stateful/math.rs's shift-register latency model: the
// operands entering on cycle N surface on the "out" port Depth cycles later,
// one register stage per pipeline slot.
type PipelinedOp struct {
	Name     string
	Depth    int
	Combine  func(a, b uint64) uint64
}

// PipelinedRegistry lists the stateful pipelined primitives this interpreter
// knows how to tick during Commit.
var PipelinedRegistry = map[string]PipelinedOp{
	"std_mult_pipe": {Name: "std_mult_pipe", Depth: 4, Combine: func(a, b uint64) uint64 { return a * b }},
	"std_div_pipe":  {Name: "std_div_pipe", Depth: 4, Combine: func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a / b
	}},
}

func requirePrimitive(name string) (Primitive, error) {
	p, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("interp: no combinational primitive registered for %q", name)
	}
	return p, nil
}
