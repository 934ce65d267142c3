package cmdutil

import "os/exec"

// Exists indicates if the command exists on PATH.
func Exists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
