//go:build windows

package main

// dataPipePath turns the random name ServerHandshake generated into a
// full named-pipe path for the anonymous data connection.
func dataPipePath(name string) string {
	return `\\.\pipe\display-helper-` + name
}
