//go:build !windows

package main

import (
	"os"
	"path/filepath"
)

// dataPipePath turns the random name ServerHandshake generated into a
// full unix-domain-socket path for the anonymous data connection,
// rooted alongside the control socket's temp directory.
func dataPipePath(name string) string {
	return filepath.Join(os.TempDir(), "display-helper-"+name+".sock")
}
