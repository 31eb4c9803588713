package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DirectoryPaths are the per-user locations for one platform
type DirectoryPaths struct {
	Data   string
	Config string
	Temp   string
}

// Platform-specific directory configurations
var directoryConfig = map[string]DirectoryPaths{
	"linux": {
		Data:   "~/.local/share/guzel",
		Config: "~/.config/guzel",
		Temp:   "~/.local/share/guzel/tmp",
	},
	"darwin": {
		Data:   "~/Library/Application Support/Guzel",
		Config: "~/Library/Preferences/Guzel",
		Temp:   "~/Library/Caches/Guzel/tmp",
	},
	"windows": {
		Data:   "%LOCALAPPDATA%\\Guzel",
		Config: "%LOCALAPPDATA%\\Guzel\\config",
		Temp:   "%TEMP%\\guzel",
	},
}

// PlatformDirectories returns the directory defaults for the running OS,
// falling back to the Linux layout.
func PlatformDirectories() DirectoryPaths {
	paths, ok := directoryConfig[runtime.GOOS]
	if !ok {
		paths = directoryConfig["linux"]
	}
	return paths
}

// CreateDirectories creates the directories the application writes into
func (c *Config) CreateDirectories() error {
	directories := []string{
		c.Paths.Data,
		c.Paths.Temp,
		c.Paths.Translations,
		filepath.Dir(c.Paths.Settings),
		filepath.Dir(c.Database.Path),
	}

	for _, dir := range directories {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// expandPath expands environment variables (both $VAR and %VAR%) and a
// leading ~, then cleans the result.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	path = expandWindowsVars(path)
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}

	return filepath.Clean(path)
}

func expandWindowsVars(path string) string {
	for {
		start := strings.Index(path, "%")
		if start < 0 {
			return path
		}
		end := strings.Index(path[start+1:], "%")
		if end < 0 {
			return path
		}
		end += start + 1
		name := path[start+1 : end]
		path = path[:start] + os.Getenv(name) + path[end+1:]
	}
}
