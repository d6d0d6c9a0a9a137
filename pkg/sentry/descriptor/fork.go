package descriptor

import "github.com/mohae/deepcopy"

// copyFlags returns an independent copy of f. Flags is trivial today, but
// using deepcopy here (rather than a hand-rolled struct copy) keeps
// Table.Fork correct by construction as per-descriptor flags grow new
// fields — the same reasoning httese-gvisor's testbench pulls in
// mohae/deepcopy for: struct shells that get copied across a simulated
// fork boundary shouldn't alias.
func copyFlags(f Flags) Flags {
	return deepcopy.Copy(f).(Flags)
}
