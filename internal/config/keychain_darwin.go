//go:build darwin

package config

import "os/exec"

func keychainGet(account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", keychainService,
		"-a", account,
		"-w",
	).Output()
}

func keychainSet(account, value string) error {
	return exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", keychainService,
		"-a", account,
		"-w", value,
	).Run()
}
