package eval

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// lookPath resolves name against $PATH. Names containing a slash are used
// as given.
func lookPath(name string) (string, error) {
	if name == "" {
		return "", errNotFound
	}
	if strings.ContainsRune(name, '/') {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	for _, dir := range pathList() {
		if dir == "" {
			dir = "."
		}
		full := filepath.Join(dir, name)
		if executable(full) {
			return full, nil
		}
	}
	return "", errNotFound
}

func pathList() []string {
	if p := os.Getenv("PATH"); p != "" {
		return strings.Split(p, string(os.PathListSeparator))
	}
	return []string{"/usr/local/bin", "/usr/bin", "/bin"}
}

// executable reports whether path is a regular file the effective user may
// execute. Anything subtler is left for exec to reject.
func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Faccessat(unix.AT_FDCWD, path, unix.X_OK, unix.AT_EACCESS) == nil
}
