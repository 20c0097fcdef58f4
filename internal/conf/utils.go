// conf/utils.go
package conf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}

	switch runtime.GOOS {
	case osWindows:
		exePath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("error getting executable path: %w", err)
		}
		return []string{
			".",
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "voiceid"),
		}, nil
	default:
		return []string{
			".",
			filepath.Join(homeDir, ".config", "voiceid"),
			"/etc/voiceid",
		}, nil
	}
}

// GetFfmpegBinaryName returns the binary name for ffmpeg based on the current OS.
func GetFfmpegBinaryName() string {
	if runtime.GOOS == osWindows {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// ResolveFfmpegPath returns the configured ffmpeg binary if it exists, or
// the one found on PATH. An empty string means ffmpeg is unavailable.
func ResolveFfmpegPath(configured string) string {
	if configured != "" {
		if info, err := os.Stat(configured); err == nil && !info.IsDir() {
			return configured
		}
		return ""
	}
	path, err := exec.LookPath(GetFfmpegBinaryName())
	if err != nil {
		return ""
	}
	return path
}
