package providers

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibraryEnv overrides the onnxruntime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the onnxruntime shared library for the current platform.
//
// An explicit path wins, then SharedLibraryEnv, then a per-platform file name under dir.
//
// Arguments:
//   - explicit: A configured library path, may be empty.
//   - dir: The directory searched for the platform default, e.g. "./third_party".
//
// Returns:
//   - string: The path to the shared library.
//   - error: If the platform has no known library name.
func GetSharedLibPath(explicit, dir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(SharedLibraryEnv); env != "" {
		return env, nil
	}

	var name string
	switch runtime.GOOS {
	case "windows":
		name = "onnxruntime.dll"
	case "darwin":
		name = "libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			name = "onnxruntime_arm64.so"
		} else {
			name = "onnxruntime.so"
		}
	default:
		return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	return filepath.Join(dir, name), nil
}
