//go:build windows
// +build windows

package filesystem

import "os"

// No advisory lock on windows; exclusivity is best effort there
func lock(f *os.File) error { return nil }

func unlock(f *os.File) error { return nil }
