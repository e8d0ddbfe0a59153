package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Exported constants.
const (
	SettingsFileName = "settings.toml"

	DefaultWindowWidth  = 100
	DefaultWindowHeight = 30
)

// Exported variables.
var (
	ErrUnknownSetting = errors.New("unknown setting")
)

// Settings is the persisted settings file.
type Settings struct {
	PakDir       string `toml:"pak_dir,omitempty"`
	UE4SSModsDir string `toml:"ue4ss_mods_dir,omitempty"`
	StorageDir   string `toml:"storage_dir,omitempty"`
	WindowWidth  int    `toml:"window_width,omitempty"`
	WindowHeight int    `toml:"window_height,omitempty"`
}

// WindowSettings is the TUI size used before the terminal reports its own.
type WindowSettings struct {
	Width  int
	Height int
}

// LoadSettings reads path. A missing file yields empty settings.
func LoadSettings(path string) (Settings, error) {
	var settings Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}

		return settings, fmt.Errorf("reading settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing %s: %w", path, err)
	}

	return settings, nil
}

// SaveSettings writes settings to path, creating its directory.
func SaveSettings(path string, settings Settings) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	return nil
}

// Window returns the configured window size with defaults for unset values.
func (s Settings) Window() WindowSettings {
	window := WindowSettings{Width: s.WindowWidth, Height: s.WindowHeight}

	if window.Width <= 0 {
		window.Width = DefaultWindowWidth
	}

	if window.Height <= 0 {
		window.Height = DefaultWindowHeight
	}

	return window
}

// Set assigns key from its string form. An empty value clears the key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "pak_dir":
		s.PakDir = value
	case "ue4ss_mods_dir":
		s.UE4SSModsDir = value
	case "storage_dir":
		s.StorageDir = value
	case "window_width", "window_height":
		n := 0

		if value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed < 0 {
				return fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
			}

			n = parsed
		}

		if key == "window_width" {
			s.WindowWidth = n
		} else {
			s.WindowHeight = n
		}
	default:
		return fmt.Errorf("%w: %s (valid: %v)", ErrUnknownSetting, key, SettingKeys())
	}

	return nil
}

// Values returns every key with its string value.
func (s Settings) Values() map[string]string {
	values := map[string]string{
		"pak_dir":        s.PakDir,
		"ue4ss_mods_dir": s.UE4SSModsDir,
		"storage_dir":    s.StorageDir,
		"window_width":   "",
		"window_height":  "",
	}

	if s.WindowWidth > 0 {
		values["window_width"] = strconv.Itoa(s.WindowWidth)
	}

	if s.WindowHeight > 0 {
		values["window_height"] = strconv.Itoa(s.WindowHeight)
	}

	return values
}

// SettingKeys lists the keys Set accepts, sorted.
func SettingKeys() []string {
	values := Settings{}.Values()

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
