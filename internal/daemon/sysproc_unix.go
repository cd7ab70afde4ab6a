package daemon

import "syscall"

// detachedSysProcAttr returns the process attributes that detach the
// forked background server from the starting terminal's session.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
