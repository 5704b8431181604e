package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	permOwnerRead  = 0o400
	permGroupWrite = 0o020
	permOtherWrite = 0o002
)

// CheckConfigPermissions validates the config file permissions.
//
// The config decides which binary derelict executes, so it must not be
// writable by anyone but its owner. It returns a warning when the file is
// group-writable and an error when the file is writable by others.
func CheckConfigPermissions(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("config path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat config %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("config %s must be a regular file", path)
	}
	perms := info.Mode().Perm()
	if perms&permOwnerRead == 0 {
		return "", fmt.Errorf("config %s must be readable by owner (mode %04o)", path, perms)
	}
	if perms&permOtherWrite != 0 {
		return "", fmt.Errorf("config %s must not be writable by others (mode %04o)", path, perms)
	}
	if perms&permGroupWrite != 0 {
		return fmt.Sprintf("config %s is group-writable (mode %04o); consider chmod 0644", path, perms), nil
	}
	return "", nil
}
