package endpoint

import (
	"fmt"
	"os"
)

// CheckLocalSource verifies that a local source path names an existing
// regular file and returns its os.FileInfo, so callers get the size and
// permission bits from the same stat call.
func CheckLocalSource(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewValidationError("source", path, "no such file")
		}
		return nil, NewValidationError("source", path, fmt.Sprintf("stat failed: %v", err))
	}
	if info.IsDir() {
		return nil, NewValidationError("source", path, "is a directory, need a regular file")
	}
	if !info.Mode().IsRegular() {
		return nil, NewValidationError("source", path, "not a regular file")
	}
	return info, nil
}

// CheckLocalTarget verifies that the local destination of a pull names an
// existing directory.
func CheckLocalTarget(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewValidationError("destination", path, "no such directory")
		}
		return NewValidationError("destination", path, fmt.Sprintf("stat failed: %v", err))
	}
	if !info.IsDir() {
		return NewValidationError("destination", path, "not a directory")
	}
	return nil
}

// CheckIdentityFile verifies that an optional credential key path, when
// supplied, names an existing regular file.
func CheckIdentityFile(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewValidationError("identity", path, "no such file")
		}
		return NewValidationError("identity", path, fmt.Sprintf("stat failed: %v", err))
	}
	if info.IsDir() {
		return NewValidationError("identity", path, "is a directory, need a key file")
	}
	return nil
}

// CheckPort validates a parsed port number against the TCP range.
func CheckPort(port int) error {
	if port < 1 || port > 65535 {
		return NewValidationError("port", fmt.Sprintf("%d", port), "must be between 1 and 65535")
	}
	return nil
}

// CheckStreams validates a parsed stream count.
func CheckStreams(streams int) error {
	if streams < 1 {
		return NewValidationError("streams", fmt.Sprintf("%d", streams), "must be at least 1")
	}
	return nil
}
