package syscall

import "fmt"

// preLine renders the pre-call trace line (spec.md §6):
//
//	SYSCALL_HANDLER_PRE: name (num)[ (previously BLOCKed)] — (proc, tid=T)
func preLine(name string, num int64, wasBlocked bool, procName string, tid int32) string {
	blockedSuffix := ""
	if wasBlocked {
		blockedSuffix = " (previously BLOCKed)"
	}
	return fmt.Sprintf("SYSCALL_HANDLER_PRE: %s (%d)%s — (%s, tid=%d)",
		name, num, blockedSuffix, procName, tid)
}

// postLine renders the post-call trace line (spec.md §6):
//
//	SYSCALL_HANDLER_POST: name (num) result [BLOCK -> ]V — (proc, tid=T)
func postLine(name string, num int64, wasBlocked bool, resultStr string, procName string, tid int32) string {
	prefix := ""
	if wasBlocked {
		prefix = "BLOCK -> "
	}
	return fmt.Sprintf("SYSCALL_HANDLER_POST: %s (%d) result %s%s — (%s, tid=%d)",
		name, num, prefix, resultStr, procName, tid)
}

// formatResult renders a Result the way spec.md §6 dictates: decimal
// return value, negated errno with symbol, "<native>", or "<blocked>".
func formatResult(r Result) string {
	switch r.Kind {
	case Ok:
		return fmt.Sprintf("%d", int64(r.Value))
	case Failed:
		return fmt.Sprintf("%d (%s)", -int64(r.Errno), r.Errno.Error())
	case Native:
		return "<native>"
	case Blocked:
		return "<blocked>"
	default:
		return "<unknown>"
	}
}
