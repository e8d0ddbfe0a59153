package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/mod-loader/internal/config"
	"github.com/joe/mod-loader/internal/lifecycle"
	"github.com/joe/mod-loader/internal/tui"
	"github.com/joe/mod-loader/internal/tui/shared"
)

//nolint:cyclop // One branch per subcommand
func (a *app) dispatch(ctx context.Context, bridge *shared.EventBridge) error {
	cfg := a.cfg

	switch {
	case cfg.Install != nil:
		return a.install(ctx, cfg.Install)
	case cfg.Enable != nil:
		return a.each(cfg.Enable.IDs, func(id string) error { return a.enable(ctx, id) })
	case cfg.Disable != nil:
		return a.each(cfg.Disable.IDs, func(id string) error { return a.disable(ctx, id) })
	case cfg.Delete != nil:
		return a.each(cfg.Delete.IDs, func(id string) error { return a.delete(ctx, id) })
	case cfg.List != nil:
		return a.list(cfg.List)
	case cfg.Duplicates != nil:
		return a.duplicates()
	case cfg.EnableAll != nil:
		return a.batch("Enabled", a.manager.EnableAll(ctx))
	case cfg.DisableAll != nil:
		return a.batch("Disabled", a.manager.DisableAll(ctx))
	case cfg.Profile != nil:
		return a.profile(ctx, cfg.Profile)
	case cfg.Order != nil:
		return a.order(cfg.Order)
	default:
		return tui.Run(tui.Options{
			Context:  ctx,
			Mods:     a.manager,
			Bridge:   bridge,
			Enricher: a.enricher,
			Window:   cfg.Window,
		}, term.IsTerminal(int(os.Stdout.Fd())))
	}
}

// each runs fn for every id, printing failures as they happen.
func (a *app) each(ids []string, fn func(id string) error) error {
	failed := false

	for _, id := range ids {
		if err := fn(id); err != nil {
			a.printError(err)

			failed = true
		}
	}

	if failed {
		return errReported
	}

	return nil
}

func (a *app) install(ctx context.Context, cmd *config.InstallCmd) error {
	return a.each(cmd.Archives, func(archivePath string) error {
		records, err := a.manager.Install(ctx, archivePath)
		if err != nil {
			return err //nolint:wrapcheck // Install names the archive
		}

		for _, record := range records {
			fmt.Fprintf(a.out, "%s Installed %s as %s %s\n",
				shared.SuccessSymbol(), record.DisplayName, record.ID, shared.TypeBadge(string(record.Type)))
		}

		if !cmd.Enable {
			return nil
		}

		var errs []error

		for _, record := range records {
			if err := a.enable(ctx, record.ID); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	})
}

func (a *app) enable(ctx context.Context, id string) error {
	report, err := a.manager.Enable(ctx, id)
	if errors.Is(err, lifecycle.ErrAlreadyEnabled) {
		fmt.Fprintln(a.out, shared.RenderDim(id+" is already enabled"))

		return nil
	}

	if report != nil {
		for _, skipped := range report.Skipped {
			fmt.Fprintf(a.out, "%s Skipped %s: %v\n", shared.WarningSymbol(), skipped.Path, skipped.Err)
		}
	}

	if err != nil {
		return err //nolint:wrapcheck // Enable names the mod
	}

	fmt.Fprintf(a.out, "%s Enabled %s (%d files)\n", shared.SuccessSymbol(), id, len(report.Installed))

	return nil
}

func (a *app) disable(ctx context.Context, id string) error {
	err := a.manager.Disable(ctx, id)
	if errors.Is(err, lifecycle.ErrAlreadyDisabled) {
		fmt.Fprintln(a.out, shared.RenderDim(id+" is already disabled"))

		return nil
	}

	if err != nil {
		return err //nolint:wrapcheck // Disable names the mod
	}

	fmt.Fprintf(a.out, "%s Disabled %s\n", shared.SuccessSymbol(), id)

	return nil
}

func (a *app) delete(ctx context.Context, id string) error {
	if err := a.manager.Delete(ctx, id); err != nil {
		return err //nolint:wrapcheck // Delete names the mod
	}

	fmt.Fprintf(a.out, "%s Deleted %s\n", shared.SuccessSymbol(), id)

	return nil
}

func (a *app) list(cmd *config.ListCmd) error {
	records := a.store.Filter(cmd.Filter)

	if cmd.Enabled {
		enabled := records[:0]

		for _, record := range records {
			if record.Enabled {
				enabled = append(enabled, record)
			}
		}

		records = enabled
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No mods installed.")

		return nil
	}

	rows := make([][]string, 0, len(records))

	for _, record := range records {
		order := "-"
		if record.LoadOrder != nil {
			order = fmt.Sprint(*record.LoadOrder)
		}

		status := "disabled"
		if record.Enabled {
			status = "enabled"
		}

		rows = append(rows, []string{
			record.ID, record.DisplayName, string(record.Type), status, order, strconv.Itoa(len(record.Files)),
		})
	}

	fmt.Fprintln(a.out, shared.RenderTable([]string{"ID", "NAME", "TYPE", "STATUS", "ORDER", "FILES"}, rows))

	return nil
}

func (a *app) duplicates() error {
	pairs := a.store.FindDuplicates()
	if len(pairs) == 0 {
		fmt.Fprintf(a.out, "%s No duplicates found\n", shared.SuccessSymbol())

		return nil
	}

	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, []string{string(pair.Kind), pair.Shared, pair.First, pair.Second})
	}

	fmt.Fprintln(a.out, shared.RenderTable([]string{"KIND", "SHARED", "FIRST", "SECOND"}, rows))

	return nil
}

func (a *app) batch(verb string, result *lifecycle.BatchResult) error {
	for _, id := range result.Succeeded {
		fmt.Fprintf(a.out, "%s %s %s\n", shared.SuccessSymbol(), verb, id)
	}

	fmt.Fprintf(a.out, "%d %s, %d unchanged, %d failed\n",
		len(result.Succeeded), strings.ToLower(verb), len(result.Skipped), len(result.Failed))

	if len(result.Failed) == 0 {
		return nil
	}

	fmt.Fprintln(a.errOut, shared.RenderFailures(a.enricher, result.Failed))

	return errReported
}

func (a *app) profile(ctx context.Context, cmd *config.ProfileCmd) error {
	switch {
	case cmd.Save != nil:
		ids, err := a.profiles.Save(cmd.Save.Name)
		if err != nil {
			return err //nolint:wrapcheck // Profile errors name the profile
		}

		fmt.Fprintf(a.out, "%s Saved profile %s (%d mods)\n", shared.SuccessSymbol(), cmd.Save.Name, len(ids))

		return nil
	case cmd.Load != nil:
		return a.loadProfile(ctx, cmd.Load.Name)
	case cmd.Delete != nil:
		if err := a.profiles.Delete(cmd.Delete.Name); err != nil {
			return err //nolint:wrapcheck // Profile errors name the profile
		}

		fmt.Fprintf(a.out, "%s Deleted profile %s\n", shared.SuccessSymbol(), cmd.Delete.Name)

		return nil
	default:
		return a.listProfiles()
	}
}

func (a *app) loadProfile(ctx context.Context, name string) error {
	result, err := a.profiles.Load(ctx, name)
	if err != nil {
		return err //nolint:wrapcheck // Profile errors name the profile
	}

	fmt.Fprintf(a.out, "%s Loaded profile %s (%d enabled)\n", shared.SuccessSymbol(), name, len(result.Enabled))

	for _, id := range result.Missing {
		fmt.Fprintf(a.out, "%s %s is no longer installed\n", shared.WarningSymbol(), id)
	}

	if len(result.Failed) == 0 {
		return nil
	}

	fmt.Fprintln(a.errOut, shared.RenderFailures(a.enricher, result.Failed))

	return errReported
}

func (a *app) listProfiles() error {
	names, err := a.profiles.List()
	if err != nil {
		return err //nolint:wrapcheck // Profile errors name the document
	}

	if len(names) == 0 {
		fmt.Fprintln(a.out, "No profiles saved.")

		return nil
	}

	rows := make([][]string, 0, len(names))

	for _, name := range names {
		ids, err := a.profiles.Get(name)
		if err != nil {
			return err //nolint:wrapcheck // Profile errors name the profile
		}

		rows = append(rows, []string{name, strings.Join(ids, ", ")})
	}

	fmt.Fprintln(a.out, shared.RenderTable([]string{"NAME", "MODS"}, rows))

	return nil
}

func (a *app) order(cmd *config.OrderCmd) error {
	if err := a.store.SetLoadOrder(cmd.ID, cmd.Order); err != nil {
		return err //nolint:wrapcheck // SetLoadOrder names the mod
	}

	if err := a.store.Save(); err != nil {
		return err //nolint:wrapcheck // Save names the document
	}

	if cmd.Order == nil {
		fmt.Fprintf(a.out, "%s Cleared load order of %s\n", shared.SuccessSymbol(), cmd.ID)
	} else {
		fmt.Fprintf(a.out, "%s Set load order of %s to %d\n", shared.SuccessSymbol(), cmd.ID, *cmd.Order)
	}

	return nil
}

func runSettings(cfg *config.Config, out io.Writer) error {
	path := cfg.SettingsPath()

	settings, err := config.LoadSettings(path)
	if err != nil {
		return err //nolint:wrapcheck // LoadSettings names the file
	}

	if set := cfg.Settings.Set; set != nil {
		if err := settings.Set(set.Key, set.Value); err != nil {
			return err //nolint:wrapcheck // Set names the key
		}

		if err := config.SaveSettings(path, settings); err != nil {
			return err //nolint:wrapcheck // SaveSettings names the file
		}

		fmt.Fprintf(out, "%s Set %s = %q in %s\n", shared.SuccessSymbol(), set.Key, set.Value, path)

		return nil
	}

	effective := map[string]string{
		"pak_dir":        cfg.PakDir,
		"ue4ss_mods_dir": cfg.UE4SSModsDir,
		"storage_dir":    cfg.StorageDir,
		"window_width":   fmt.Sprint(cfg.Window.Width),
		"window_height":  fmt.Sprint(cfg.Window.Height),
	}

	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Settings file:"), filepath.Clean(path))

	saved := settings.Values()
	keys := config.SettingKeys()
	rows := make([][]string, 0, len(keys))

	for _, key := range keys {
		rows = append(rows, []string{key, orDash(effective[key]), orDash(saved[key])})
	}

	fmt.Fprintln(out, shared.RenderTable([]string{"KEY", "EFFECTIVE", "SAVED"}, rows))

	return nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}

	return value
}
