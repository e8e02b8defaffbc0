//go:build darwin

package config

import "os/exec"

// keychainExec shells out to the security tool for a generic password.
// The -w flag prints the password alone, nothing else to parse.
func keychainExec(service, account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
}
