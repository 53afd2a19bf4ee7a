// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package proctree

import (
	"sort"

	"github.com/vigil-systems/vigil/lib/telemetry"
)

// node is one arena entry. Children hold arena indices, not pointers,
// so the whole forest lives in two flat slices.
type node struct {
	proc     telemetry.Process
	children []int
}

// Build converts a flat pid-keyed process map into a single rooted
// tree. The root is the lowest pid present (init, or the scan's oldest
// survivor). A process whose parent is not in the map attaches to the
// root, as does the lowest member of any parent cycle, so every input
// process appears in the output exactly once.
//
// Each returned Process carries MergedUsage, the bottom-up sum of its
// own usage and all descendants. Children are sorted by pid for
// deterministic output. Returns false when the map is empty.
func Build(processes map[int32]telemetry.Process) (telemetry.Process, bool) {
	if len(processes) == 0 {
		return telemetry.Process{}, false
	}

	pids := make([]int32, 0, len(processes))
	for pid := range processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	rootPID := pids[0]

	arena := make([]node, 0, len(processes))
	index := make(map[int32]int, len(processes))
	for _, pid := range pids {
		index[pid] = len(arena)
		arena = append(arena, node{proc: processes[pid]})
	}

	attach := func(parent, child int32) {
		p := index[parent]
		arena[p].children = append(arena[p].children, index[child])
	}

	for _, pid := range pids {
		if pid == rootPID {
			continue
		}
		parent := processes[pid].ParentPID
		if parent == pid {
			// Self-parenting never happens for real pids; treat as
			// orphaned.
			attach(rootPID, pid)
			continue
		}
		if _, ok := index[parent]; ok {
			attach(parent, pid)
		} else {
			attach(rootPID, pid)
		}
	}

	// Parent cycles (possible only with inconsistent input, e.g. a
	// fixture or a racing scan) are unreachable from the root. Attach
	// the lowest pid of each unreachable cluster to the root until
	// everything is reachable.
	visited := make([]bool, len(arena))
	markReachable(arena, index[rootPID], visited)
	for {
		cyclePID := int32(-1)
		for _, pid := range pids {
			if !visited[index[pid]] {
				cyclePID = pid
				break
			}
		}
		if cyclePID < 0 {
			break
		}
		// Break the cycle: the chosen member joins the root and keeps
		// its subtree.
		detach(arena, index[cyclePID])
		attach(rootPID, cyclePID)
		markReachable(arena, index[cyclePID], visited)
	}

	return assemble(arena, index[rootPID]), true
}

// markReachable walks the subtree iteratively with an explicit stack.
// The visited set terminates the walk even if the arena still contains
// a back edge.
func markReachable(arena []node, start int, visited []bool) {
	stack := []int{start}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		stack = append(stack, arena[idx].children...)
	}
}

// detach removes idx from whichever child list holds it.
func detach(arena []node, idx int) {
	for i := range arena {
		for j, child := range arena[i].children {
			if child == idx {
				arena[i].children = append(arena[i].children[:j], arena[i].children[j+1:]...)
				return
			}
		}
	}
}

// assemble materializes the nested Process tree and computes
// MergedUsage post-order. The walk uses an explicit frame stack so
// pathological parent chains cost heap, not goroutine stack.
func assemble(arena []node, root int) telemetry.Process {
	// Arena order is pid order, so sorting child indices sorts by pid.
	for i := range arena {
		sort.Ints(arena[i].children)
	}

	type frame struct {
		idx  int
		next int
	}
	built := make([]telemetry.Process, len(arena))
	stack := []frame{{idx: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := arena[top.idx].children
		if top.next < len(children) {
			child := children[top.next]
			top.next++
			stack = append(stack, frame{idx: child})
			continue
		}

		// All children built; fold them in.
		entry := arena[top.idx].proc
		entry.MergedUsage = entry.Usage
		for _, childIdx := range children {
			child := built[childIdx]
			entry.MergedUsage = entry.MergedUsage.Merge(child.MergedUsage)
			entry.Children = append(entry.Children, child)
		}
		built[top.idx] = entry
		stack = stack[:len(stack)-1]
	}
	return built[root]
}

// Flatten walks a tree back into a flat pid-keyed map, dropping the
// tree-only fields. Build and Flatten are inverses over any input map.
// Iterative for the same depth reason as assemble.
func Flatten(root telemetry.Process) map[int32]telemetry.Process {
	out := make(map[int32]telemetry.Process)
	stack := []telemetry.Process{root}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, p.Children...)
		p.Children = nil
		p.MergedUsage = telemetry.UsageStats{}
		out[p.PID] = p
	}
	return out
}
