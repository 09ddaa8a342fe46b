package passes

import (
	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/ir"
)

// PromotionPolicy is the threshold/cycle-limit/if-diff-tolerance policy
// spec.md §4.4 gates static promotion behind: a candidate is promoted only
// if its approximate size clears Threshold, its inferred latency fits within
// CycleLimit, and (for an if) its branches' latencies differ by no more than
// IfDiffTolerance.
type PromotionPolicy struct {
	Threshold       uint64
	CycleLimit      uint64
	IfDiffTolerance uint64
}

// DefaultPromotionPolicy is a permissive policy (threshold 1, cycle limit
// 1<<20, zero if-diff tolerance) for callers that invoke PromoteStatic
// directly; config.BuildPipeline does not use it and instead builds the
// policy from Config's StaticPromotion* fields (threshold 64 by default).
func DefaultPromotionPolicy() PromotionPolicy {
	return PromotionPolicy{Threshold: 1, CycleLimit: 1 << 20, IfDiffTolerance: 0}
}

// PromoteStatic rewrites dynamic control into its static analogue wherever
// policy allows it (spec.md §4.4): an Enable of an already-static group
// always promotes; an Enable of a dynamic group, or an If/While/Repeat whose
// body has become static, promotes only once its inferred latency — read off
// a @promote_static hint on the node/group's attributes, or computed
// directly once its children are static — clears policy's threshold, cycle
// limit, and (for If) branch-latency-difference tolerance. A Seq or Par
// whose children are all promotable but whose combined latency is too big
// for one static node is still partially promoted: Seq splits at the
// midpoint and Par pulls its single largest thread out on its own, so a
// pipeline can still shrink the dynamic remainder on a later run.
func PromoteStatic(c *ir.Component, policy PromotionPolicy) error {
	c.Control = promote(c.Control, policy)
	return nil
}

func promote(n ir.Control, policy PromotionPolicy) ir.Control {
	switch v := n.(type) {
	case nil, *ir.Empty:
		return n
	case *ir.Enable:
		if v.Group.Static {
			return ir.NewStaticEnable(v.Group)
		}
		if lat, ok := v.Group.Attrs.Get(attr.PromoteStatic); ok && eligible(n, lat, policy) {
			return ir.NewStaticEnableWithLatency(v.Group, lat)
		}
		return v
	case *ir.Seq:
		return promoteSeq(v, policy)
	case *ir.Par:
		return promotePar(v, policy)
	case *ir.If:
		v.True = promote(v.True, policy)
		v.False = promote(v.False, policy)
		if ir.IsStatic(v.True) && ir.IsStatic(v.False) {
			trueLat, _ := ir.StaticLatency(v.True)
			falseLat, _ := ir.StaticLatency(v.False)
			max := trueLat
			if falseLat > max {
				max = falseLat
			}
			if eligible(v, max, policy) {
				return ir.NewStaticIf(v.Port, v.True, v.False, max)
			}
		}
		return v
	case *ir.While:
		v.Body = promote(v.Body, policy)
		if bound, ok := v.Attributes().Get(attr.Bound); ok && ir.IsStatic(v.Body) {
			bodyLat, _ := ir.StaticLatency(v.Body)
			if eligible(v, bound*bodyLat, policy) {
				return ir.NewStaticRepeat(bound, v.Body, bodyLat)
			}
		}
		return v
	case *ir.Repeat:
		v.Body = promote(v.Body, policy)
		if lat, ok := ir.StaticLatency(v.Body); ok && eligible(v, v.Num*lat, policy) {
			return ir.NewStaticRepeat(v.Num, v.Body, lat)
		}
		return v
	default:
		return n
	}
}

// eligible applies spec.md §4.4's three-part policy to a candidate whose
// inferred total latency is lat.
func eligible(n ir.Control, lat uint64, policy PromotionPolicy) bool {
	if size(n) < policy.Threshold {
		return false
	}
	if lat > policy.CycleLimit {
		return false
	}
	if ifNode, ok := n.(*ir.If); ok {
		trueLat, trueOK := ir.StaticLatency(ifNode.True)
		falseLat, falseOK := ir.StaticLatency(ifNode.False)
		if trueOK && falseOK {
			diff := trueLat - falseLat
			if falseLat > trueLat {
				diff = falseLat - trueLat
			}
			if diff > policy.IfDiffTolerance {
				return false
			}
		}
	}
	return true
}

// size approximates a control node's static-promotion cost: an enable or
// invoke costs 1, an if costs 3, a while/repeat costs 3 plus its body, and a
// seq/par costs the sum of its children — spec.md §4.4's sizing rule, used
// only to gate promotion against Threshold.
func size(n ir.Control) uint64 {
	switch v := n.(type) {
	case nil, *ir.Empty:
		return 0
	case *ir.Enable, *ir.StaticEnable, *ir.Invoke, *ir.StaticInvoke:
		return 1
	case *ir.If, *ir.StaticIf:
		return 3
	case *ir.While:
		return 3 + size(v.Body)
	case *ir.Repeat:
		return 3 + size(v.Body)
	case *ir.StaticRepeat:
		return 3 + size(v.Body)
	case *ir.Seq:
		return sizeAll(v.Stmts)
	case *ir.StaticSeq:
		return sizeAll(v.Stmts)
	case *ir.Par:
		return sizeAll(v.Stmts)
	case *ir.StaticPar:
		return sizeAll(v.Stmts)
	default:
		return 0
	}
}

func sizeAll(stmts []ir.Control) uint64 {
	var sum uint64
	for _, s := range stmts {
		sum += size(s)
	}
	return sum
}

func promoteAll(stmts []ir.Control, policy PromotionPolicy) []ir.Control {
	out := make([]ir.Control, len(stmts))
	for i, s := range stmts {
		out[i] = promote(s, policy)
	}
	return out
}

func allStatic(stmts []ir.Control) bool {
	for _, s := range stmts {
		if !ir.IsStatic(s) {
			return false
		}
	}
	return len(stmts) > 0
}

func promoteSeq(v *ir.Seq, policy PromotionPolicy) ir.Control {
	stmts := promoteAll(v.Stmts, policy)
	return splitSeq(stmts, policy)
}

// tryStaticSeq builds a StaticSeq from stmts if every one is static and the
// combined latency fits the cycle budget.
func tryStaticSeq(stmts []ir.Control, policy PromotionPolicy) (ir.Control, bool) {
	if !allStatic(stmts) {
		return nil, false
	}
	var sum uint64
	for _, s := range stmts {
		lat, _ := ir.StaticLatency(s)
		sum += lat
	}
	if sum > policy.CycleLimit {
		return nil, false
	}
	return ir.NewStaticSeq(sum, stmts...), true
}

// splitSeq returns a single Control equivalent to running stmts in order. If
// the whole list is static-eligible but too big for one StaticSeq, it splits
// at the midpoint and recurses on each half — spec.md §4.4's "too big"
// fallback — bottoming out at a single statement or a smaller run that fits.
func splitSeq(stmts []ir.Control, policy PromotionPolicy) ir.Control {
	if len(stmts) == 0 {
		return ir.NewEmpty()
	}
	if len(stmts) == 1 {
		return stmts[0]
	}
	if merged, ok := tryStaticSeq(stmts, policy); ok {
		return merged
	}
	if !allStatic(stmts) {
		return ir.NewSeq(stmts...)
	}
	mid := len(stmts) / 2
	left := splitSeq(stmts[:mid], policy)
	right := splitSeq(stmts[mid:], policy)
	return ir.NewSeq(left, right)
}

func promotePar(v *ir.Par, policy PromotionPolicy) ir.Control {
	stmts := promoteAll(v.Stmts, policy)
	if merged, ok := tryStaticPar(stmts, policy); ok {
		return merged
	}
	return pullLargestThread(stmts)
}

func tryStaticPar(stmts []ir.Control, policy PromotionPolicy) (ir.Control, bool) {
	if !allStatic(stmts) {
		return nil, false
	}
	var max uint64
	for _, s := range stmts {
		lat, _ := ir.StaticLatency(s)
		if lat > max {
			max = lat
		}
	}
	if max > policy.CycleLimit {
		return nil, false
	}
	return ir.NewStaticPar(max, stmts...), true
}

// pullLargestThread handles a Par whose threads are all static-eligible but
// whose combined width is too wide for one StaticPar: the single largest
// thread stays promoted on its own, and every other (already independently
// promoted where possible) thread runs alongside it in a dynamic Par, per
// spec.md §4.4's "pulling out the largest thread" fallback.
func pullLargestThread(stmts []ir.Control) ir.Control {
	if len(stmts) < 2 {
		return ir.NewPar(stmts...)
	}
	largest := 0
	var largestLat uint64
	haveLat := false
	for i, s := range stmts {
		if lat, ok := ir.StaticLatency(s); ok && (!haveLat || lat > largestLat) {
			largest, largestLat, haveLat = i, lat, true
		}
	}
	if !haveLat {
		return ir.NewPar(stmts...)
	}
	reordered := make([]ir.Control, 0, len(stmts))
	reordered = append(reordered, stmts[largest])
	for i, s := range stmts {
		if i != largest {
			reordered = append(reordered, s)
		}
	}
	return ir.NewPar(reordered...)
}
