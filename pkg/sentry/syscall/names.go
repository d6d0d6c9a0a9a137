package syscall

// knownNames supplements the registry with display names for syscall
// numbers that this engine doesn't handle (Unsupported) but that are
// still real, named Linux syscalls — so a trace line reads
// "mount (165)" instead of "syscall (165)", matching Shadow's
// `syscall.to_str()` fallback in host::syscall::handler::mod. This table
// is intentionally partial: it only needs to cover numbers this engine's
// own tests and handlers reference; anything absent falls back to the
// numeric-only "syscall" name per spec.md §4.1.
var knownNames = map[int64]string{
	165: "mount",
	166: "umount2",
	187: "readahead",
	206: "io_setup",
	207: "io_destroy",
	208: "io_getevents",
	209: "io_submit",
	210: "io_cancel",
	221: "fadvise64",
	253: "inotify_init",
	254: "inotify_add_watch",
	255: "inotify_rm_watch",
	275: "splice",
	276: "tee",
	285: "fallocate",
	294: "inotify_init1",
	319: "memfd_create",
}

// resolveName returns a human-readable name for num, preferring a
// registered handler's own name, then the supplemental table, then a
// numeric-only placeholder.
func resolveName(num int64, registered string) string {
	if registered != "" {
		return registered
	}
	if n, ok := knownNames[num]; ok {
		return n
	}
	return "syscall"
}
