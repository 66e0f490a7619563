//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// CurrentExecutable returns the base name of the running binary.
func CurrentExecutable() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}

// OtherInstances returns the PIDs of processes other than this one running processName.
// The comparison ignores case on Windows and follows the kernel's name truncation on Linux.
func OtherInstances(processName string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process.Executable(), processName) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// linuxCommLen is the length /proc/<pid>/stat truncates process names to.
const linuxCommLen = 15

func sameExecutable(listed, want string) bool {
	switch runtime.GOOS {
	case "windows":
		return strings.EqualFold(listed, want)
	case "linux":
		if len(want) > linuxCommLen {
			want = want[:linuxCommLen]
		}
	}

	return listed == want
}
