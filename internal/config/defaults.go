package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "focusgate"

// dirRule locates one kind of per-user directory on each platform.
type dirRule struct {
	darwin      []string // under $HOME
	xdgEnv      string
	xdgFallback []string // under $HOME when xdgEnv is unset
	winEnv      string   // falls back to APPDATA
	winSuffix   []string // under <winEnv>/focusgate
}

var (
	dataDirRule = dirRule{
		darwin:      []string{"Library", "Application Support"},
		xdgEnv:      "XDG_DATA_HOME",
		xdgFallback: []string{".local", "share"},
		winEnv:      "APPDATA",
	}
	configDirRule = dirRule{
		darwin:      []string{"Library", "Application Support"},
		xdgEnv:      "XDG_CONFIG_HOME",
		xdgFallback: []string{".config"},
		winEnv:      "APPDATA",
	}
	logDirRule = dirRule{
		darwin:      []string{"Library", "Logs"},
		xdgEnv:      "XDG_STATE_HOME",
		xdgFallback: []string{".local", "state"},
		winEnv:      "LOCALAPPDATA",
		winSuffix:   []string{"logs"},
	}
)

func (r dirRule) resolve() string {
	home, _ := os.UserHomeDir()
	under := func(base string, parts ...string) string {
		return filepath.Join(append(append([]string{base}, parts...), appName)...)
	}

	switch runtime.GOOS {
	case "darwin":
		if home != "" {
			return under(home, r.darwin...)
		}
	case "windows":
		base := os.Getenv(r.winEnv)
		if base == "" {
			base = os.Getenv("APPDATA")
		}
		if base != "" {
			return filepath.Join(append([]string{base, appName}, r.winSuffix...)...)
		}
	default:
		if base := os.Getenv(r.xdgEnv); base != "" {
			return under(base)
		}
		if home != "" {
			return under(home, r.xdgFallback...)
		}
	}
	return filepath.Join(home, "."+appName)
}

// PlatformDataDir is where the journal lives by default: XDG_DATA_HOME on
// Linux, Application Support on macOS, %APPDATA% on Windows.
func PlatformDataDir() string { return dataDirRule.resolve() }

// PlatformConfigDir is searched for config files.
func PlatformConfigDir() string { return configDirRule.resolve() }

// PlatformLogDir is where file logging writes by default.
func PlatformLogDir() string { return logDirRule.resolve() }

// SupportedConfigFormats lists the config file extensions, in search order.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile returns FOCUSGATE_CONFIG if set, else the first existing
// focusgate.<ext> in the working directory or the platform config
// directory, or config.<ext> in the latter. It returns "" when nothing
// exists.
func FindConfigFile() string {
	if v := os.Getenv("FOCUSGATE_CONFIG"); v != "" {
		return v
	}
	var candidates []string
	for _, ext := range SupportedConfigFormats() {
		candidates = append(candidates, appName+"."+ext)
	}
	for _, ext := range SupportedConfigFormats() {
		candidates = append(candidates,
			filepath.Join(PlatformConfigDir(), appName+"."+ext),
			filepath.Join(PlatformConfigDir(), "config."+ext))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
