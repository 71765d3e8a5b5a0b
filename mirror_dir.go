package imgcache

import (
	"os"
	"path/filepath"
)

// SharedStorageEnv names the environment variable holding the shared
// storage root. Android sets it to the mounted external storage.
const SharedStorageEnv = "EXTERNAL_STORAGE"

// DefaultMirrorDir returns the mirror directory used when none is given:
// "<shared root>/data/codehenge" when the shared storage root is mounted,
// otherwise "imgcache" under the user cache directory, otherwise under the
// system temp directory.
func DefaultMirrorDir() string {
	return mirrorDir(os.Getenv, os.UserCacheDir)
}

func mirrorDir(getenv func(string) string, userCacheDir func() (string, error)) string {
	if root := getenv(SharedStorageEnv); root != "" {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return filepath.Join(root, "data", "codehenge")
		}
	}
	if dir, err := userCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "imgcache")
	}
	return filepath.Join(os.TempDir(), "imgcache")
}
