package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryArchive:
		return g.generateArchiveSuggestions(affectedPath)
	case CategoryNoContent:
		return g.generateNoContentSuggestions(affectedPath)
	case CategoryMissingSource:
		return g.generateMissingSourceSuggestions(affectedPath)
	case CategoryRegistry:
		return g.generateRegistrySuggestions(affectedPath)
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateArchiveSuggestions(path string) []string {
	suggestions := []string{
		"Re-download the archive; it may be truncated or corrupt",
		"Convert the archive to .zip, which is always supported",
	}

	if path != "" {
		suggestions = append(suggestions, "Try opening "+path+" with an archive tool to confirm it is readable")
	}

	return append(suggestions, "For .rar or .7z archives, install unrar or 7-Zip and make sure it is on PATH")
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the destination device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateMissingSourceSuggestions(path string) []string {
	suggestions := []string{
		"The mod's stored copy is gone; delete the mod and install the archive again",
	}

	if path != "" {
		suggestions = append(suggestions, "Expected the stored files under "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateNoContentSuggestions(_ string) []string {
	return []string{
		"The archive has no .pak files and no UE4SS scripts (.lua, .uasset, .umap, .dll)",
		"Check that you downloaded the mod itself and not a readme or source bundle",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
	}

	return append(suggestions, "Check pak_dir and ue4ss_mods_dir with 'mod-loader config show'")
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read/write permissions for the game and storage directories",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	}

	return append(suggestions, "Close the game if it is running; it may hold the files open")
}

func (g *suggestionGenerator) generateRegistrySuggestions(path string) []string {
	suggestions := []string{
		"The mod registry could not be read; a backup copy was kept next to it",
		"Run again with --recover-registry to start from an empty registry",
	}

	if path != "" {
		suggestions = append(suggestions, "Inspect or repair "+path+" by hand")
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Run with --log-level debug for a full trace",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
