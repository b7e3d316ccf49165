//go:build !linux

package stunutil

import "syscall"

func bindControl(string) func(network, address string, c syscall.RawConn) error {
	return nil
}
