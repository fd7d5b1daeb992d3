//go:build linux

package triac

import "golang.org/x/sys/unix"

// raisePriority gives the calling thread the highest nice priority.
// Needs CAP_SYS_NICE.
func raisePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), -20)
}
