// Package config handles command-line parsing and the persisted settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/charmbracelet/log"

	"github.com/joe/mod-loader/pkg/filesystem"
)

// Exported constants.
const (
	AppName = "mod-loader"
	// DefaultStorageDirName is created inside the config directory when no storage_dir is set.
	DefaultStorageDirName = "mods"
)

// Exported variables.
var (
	ErrNotADirectory = errors.New("not a directory")
)

// Config holds the parsed command line merged with the settings file.
type Config struct {
	PakDir          string `arg:"--pak-dir,env:MOD_LOADER_PAK_DIR" help:"Game pak directory (local path or sftp://user@host/path)"`
	UE4SSModsDir    string `arg:"--ue4ss-mods-dir,env:MOD_LOADER_UE4SS_DIR" help:"UE4SS Mods directory (local path or sftp://user@host/path)"`
	StorageDir      string `arg:"--storage-dir,env:MOD_LOADER_STORAGE_DIR" help:"Where installed mods and the registry are kept"`
	ConfigDir       string `arg:"--config-dir" help:"Directory holding settings.toml (default: user config dir)"`
	LogLevel        string `arg:"--log-level" default:"info" help:"Log level: debug|info|warn|error"`
	LogFile         string `arg:"--log-file" help:"Write logs to this file instead of stderr"`
	RecoverRegistry bool   `arg:"--recover-registry" help:"Start from an empty registry if mods.json is corrupt"`

	Install    *InstallCmd  `arg:"subcommand:install" help:"Install mods from archives"`
	Enable     *IDsCmd      `arg:"subcommand:enable" help:"Copy mods into the game"`
	Disable    *IDsCmd      `arg:"subcommand:disable" help:"Remove mods from the game"`
	Delete     *IDsCmd      `arg:"subcommand:delete" help:"Uninstall mods and their stored files"`
	List       *ListCmd     `arg:"subcommand:list" help:"List installed mods"`
	Duplicates *EmptyCmd    `arg:"subcommand:duplicates" help:"Report mods that share a name or a file"`
	EnableAll  *EmptyCmd    `arg:"subcommand:enable-all" help:"Enable every installed mod"`
	DisableAll *EmptyCmd    `arg:"subcommand:disable-all" help:"Disable every enabled mod"`
	Profile    *ProfileCmd  `arg:"subcommand:profile" help:"Save and restore sets of enabled mods"`
	Order      *OrderCmd    `arg:"subcommand:order" help:"Set a mod's load order"`
	Settings   *SettingsCmd `arg:"subcommand:config" help:"Show or change persisted settings"`
	TUI        *EmptyCmd    `arg:"subcommand:tui" help:"Run the interactive interface (default)"`

	// Derived by PostProcessConfig.
	Window      WindowSettings `arg:"-"`
	Interactive bool           `arg:"-"`
}

// EmptyCmd is a subcommand without arguments.
type EmptyCmd struct{}

// InstallCmd installs one or more archives.
type InstallCmd struct {
	Archives []string `arg:"positional,required" help:"Archive files (.zip, .rar, .7z)"`
	Enable   bool     `arg:"-e,--enable" help:"Enable each installed mod right away"`
}

// IDsCmd names the mods an operation applies to.
type IDsCmd struct {
	IDs []string `arg:"positional,required" help:"Mod ids"`
}

// ListCmd filters the mod list.
type ListCmd struct {
	Filter  string `arg:"positional" help:"Only list mods matching this text or glob"`
	Enabled bool   `arg:"--enabled" help:"Only list enabled mods"`
}

// ProfileCmd groups the profile subcommands.
type ProfileCmd struct {
	Save   *NameCmd  `arg:"subcommand:save" help:"Snapshot the enabled mods"`
	Load   *NameCmd  `arg:"subcommand:load" help:"Enable exactly the mods in a profile"`
	Delete *NameCmd  `arg:"subcommand:delete" help:"Remove a profile"`
	List   *EmptyCmd `arg:"subcommand:list" help:"List profiles"`
}

// NameCmd takes a single profile name.
type NameCmd struct {
	Name string `arg:"positional,required" help:"Profile name"`
}

// OrderCmd sets or clears a load order.
type OrderCmd struct {
	ID    string `arg:"positional,required" help:"Mod id"`
	Order *int   `arg:"positional" help:"Load order; omit to clear"`
}

// SettingsCmd groups the config subcommands.
type SettingsCmd struct {
	Show *EmptyCmd   `arg:"subcommand:show" help:"Print the effective settings"`
	Set  *SetCommand `arg:"subcommand:set" help:"Persist a setting"`
}

// SetCommand persists one key.
type SetCommand struct {
	Key   string `arg:"positional,required" help:"pak_dir|ue4ss_mods_dir|storage_dir|window_width|window_height"`
	Value string `arg:"positional" help:"New value; empty clears the key"`
}

// Description returns the program description for go-arg.
func (Config) Description() string {
	return "Install, enable and organise game mods from archives"
}

// Version returns the version string for go-arg.
func (Config) Version() string {
	return AppName + " 1.0.0"
}

// Parse parses args (without the program name) and merges the settings file. The parser
// is returned so callers can print help for arg.ErrHelp and arg.ErrVersion.
func Parse(args []string) (*Config, *arg.Parser, error) {
	cfg := &Config{}

	parser, err := arg.NewParser(arg.Config{Program: AppName}, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build parser: %w", err)
	}

	if err := parser.Parse(args); err != nil {
		return nil, parser, err //nolint:wrapcheck // arg.ErrHelp and arg.ErrVersion are compared by identity
	}

	if cfg.ConfigDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, parser, err
		}

		cfg.ConfigDir = dir
	}

	settings, err := LoadSettings(cfg.SettingsPath())
	if err != nil {
		return nil, parser, err
	}

	processed, err := PostProcessConfig(cfg, settings)

	return processed, parser, err
}

// DefaultConfigDir returns <user config dir>/mod-loader.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate user config directory: %w", err)
	}

	return filepath.Join(base, AppName), nil
}

// SettingsPath returns the settings file inside ConfigDir.
func (cfg *Config) SettingsPath() string {
	return filepath.Join(cfg.ConfigDir, SettingsFileName)
}

// PostProcessConfig fills unset flags from settings and validates the result.
func PostProcessConfig(cfg *Config, settings Settings) (*Config, error) {
	cfg.PakDir = firstNonEmpty(cfg.PakDir, settings.PakDir)
	cfg.UE4SSModsDir = firstNonEmpty(cfg.UE4SSModsDir, settings.UE4SSModsDir)
	cfg.StorageDir = firstNonEmpty(cfg.StorageDir, settings.StorageDir, filepath.Join(cfg.ConfigDir, DefaultStorageDirName))
	cfg.Window = settings.Window()

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	// No subcommand means the interactive interface.
	if cfg.noSubcommand() {
		cfg.Interactive = true
	}

	if cfg.TUI != nil {
		cfg.Interactive = true
	}

	// Settings stay editable even when a configured path is broken.
	if cfg.Settings != nil {
		return cfg, nil
	}

	if err := cfg.ValidatePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) noSubcommand() bool {
	return cfg.Install == nil && cfg.Enable == nil && cfg.Disable == nil && cfg.Delete == nil &&
		cfg.List == nil && cfg.Duplicates == nil && cfg.EnableAll == nil && cfg.DisableAll == nil &&
		cfg.Profile == nil && cfg.Order == nil && cfg.Settings == nil && cfg.TUI == nil
}

// ValidatePaths checks the configured game directories. Empty directories are allowed;
// operations that need one report it as not configured.
func (cfg *Config) ValidatePaths() error {
	for _, dir := range []struct{ name, value string }{
		{"pak_dir", cfg.PakDir},
		{"ue4ss_mods_dir", cfg.UE4SSModsDir},
	} {
		if dir.value == "" {
			continue
		}

		if err := validateLocation(dir.name, dir.value); err != nil {
			return err
		}
	}

	if strings.HasPrefix(cfg.StorageDir, filesystem.SFTPScheme+"://") {
		return fmt.Errorf("storage_dir must be a local path: %s", cfg.StorageDir)
	}

	if err := os.MkdirAll(cfg.StorageDir, 0o750); err != nil {
		return fmt.Errorf("cannot create storage_dir %s: %w", cfg.StorageDir, err)
	}

	return nil
}

func validateLocation(name, value string) error {
	location, err := filesystem.ParseLocation(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}

	if location.IsRemote {
		return nil
	}

	info, err := os.Stat(location.LocalPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", name, location.LocalPath)
	}

	if err != nil {
		return fmt.Errorf("cannot access %s: %w", name, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w: %s", name, ErrNotADirectory, location.LocalPath)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}

	return ""
}
