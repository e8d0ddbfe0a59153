// Package inspector classifies an extracted mod archive: which kind of mod it holds,
// which files make up each installable unit, and what the optional modinfo.json says.
package inspector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Exported constants.
const (
	KindInvalid Kind = iota
	KindPak
	KindUE4SS
)

// Exported constants.
const (
	// MetadataFileName is the optional per-archive metadata document.
	MetadataFileName = "modinfo.json"
	// ScriptsDirName marks the root of a UE4SS mod.
	ScriptsDirName = "Scripts"
)

// Exported variables.
var (
	ErrRootNotDirectory = errors.New("extracted root is not a directory")
)

// Classification is the result of inspecting an extracted archive.
type Classification struct {
	Kind Kind
	// Metadata is nil when no valid modinfo.json was found.
	Metadata *Metadata
	// MetadataPath is the slash path of the metadata file below the root, if any.
	MetadataPath string
	// Paks holds one bundle per .pak file, ordered by path. Set for KindPak.
	Paks []PakBundle
	// UE4SS holds the script tree. Set for KindUE4SS.
	UE4SS *UE4SSUnit
}

// Kind is the content category of an archive.
type Kind int

func (k Kind) String() string {
	switch k {
	case KindPak:
		return "pak"
	case KindUE4SS:
		return "ue4ss"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Metadata is the content of modinfo.json. Icon is a slash path below the extracted root.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Version     string `json:"version"`
	Icon        string `json:"icon"`
}

// PakBundle is a .pak file plus its same-named companions in the same directory.
type PakBundle struct {
	// Pak is the slash path of the .pak file below the extracted root.
	Pak string
	// Files lists Pak and its companions, sorted.
	Files []string
}

// BaseName returns the pak file name without directory or extension.
func (b PakBundle) BaseName() string {
	base := path.Base(b.Pak)

	return strings.TrimSuffix(base, path.Ext(base))
}

// UE4SSUnit is a script mod tree.
type UE4SSUnit struct {
	// Root is the slash path of the mod root below the extracted root ("." for the root itself).
	Root string
	// Files are slash paths relative to Root, sorted. The metadata file is excluded.
	Files []string
}

// Name returns the mod root's folder name, or "" when the root is the extracted root.
func (u *UE4SSUnit) Name() string {
	if u.Root == "." {
		return ""
	}

	return path.Base(u.Root)
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Extension table is read-only configuration
	contentExtensions = map[string]Kind{
		".pak":    KindPak,
		".lua":    KindUE4SS,
		".uasset": KindUE4SS,
		".umap":   KindUE4SS,
		".dll":    KindUE4SS,
	}

	//nolint:gochecknoglobals // Extension table is read-only configuration
	pakCompanionExtensions = []string{".utoc", ".ucas", ".sig"}
)

// Classify inspects the extracted tree at root.
func Classify(root string) (*Classification, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	return ClassifyFS(os.DirFS(root))
}

// ClassifyFS inspects an extracted tree exposed as an fs.FS.
func ClassifyFS(fsys fs.FS) (*Classification, error) {
	var files []string

	err := doublestar.GlobWalk(fsys, "**", func(p string, _ fs.DirEntry) error {
		files = append(files, p)

		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan extracted files: %w", err)
	}

	sort.Strings(files)

	result := &Classification{Kind: KindInvalid}

	result.MetadataPath = findMetadata(files)
	if result.MetadataPath != "" {
		result.Metadata = readMetadata(fsys, result.MetadataPath, files)
	}

	hasPak, hasUE4SS := false, false

	for _, file := range files {
		switch contentExtensions[strings.ToLower(path.Ext(file))] {
		case KindPak:
			hasPak = true
		case KindUE4SS:
			hasUE4SS = true
		case KindInvalid:
		}
	}

	switch {
	case hasPak:
		result.Kind = KindPak
		result.Paks = pakBundles(files)
	case hasUE4SS:
		result.Kind = KindUE4SS
		result.UE4SS = ue4ssUnit(files, result.MetadataPath)
	}

	return result, nil
}

// findMetadata returns the shallowest modinfo.json, ties broken lexically.
func findMetadata(files []string) string {
	best := ""
	bestDepth := -1

	for _, file := range files {
		if !strings.EqualFold(path.Base(file), MetadataFileName) {
			continue
		}

		depth := strings.Count(file, "/")
		if bestDepth == -1 || depth < bestDepth || (depth == bestDepth && file < best) {
			best = file
			bestDepth = depth
		}
	}

	return best
}

// readMetadata parses the metadata file. Malformed documents are treated as absent.
func readMetadata(fsys fs.FS, metadataPath string, files []string) *Metadata {
	data, err := fs.ReadFile(fsys, metadataPath)
	if err != nil {
		return nil
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}

	meta.Name = strings.TrimSpace(meta.Name)
	meta.Icon = resolveIcon(meta.Icon, path.Dir(metadataPath), files)

	return &meta
}

// resolveIcon locates icon relative to the metadata directory, then the root. Icons that
// escape the tree or do not exist resolve to "".
func resolveIcon(icon, metadataDir string, files []string) string {
	icon = strings.TrimSpace(strings.ReplaceAll(icon, "\\", "/"))
	if icon == "" || path.IsAbs(icon) {
		return ""
	}

	exists := make(map[string]bool, len(files))
	for _, file := range files {
		exists[file] = true
	}

	for _, base := range []string{metadataDir, "."} {
		candidate := path.Join(base, icon)
		if candidate == ".." || strings.HasPrefix(candidate, "../") {
			continue
		}

		if exists[candidate] {
			return candidate
		}
	}

	return ""
}

func pakBundles(files []string) []PakBundle {
	present := make(map[string]string, len(files))
	for _, file := range files {
		present[strings.ToLower(file)] = file
	}

	var bundles []PakBundle

	for _, file := range files {
		if !strings.EqualFold(path.Ext(file), ".pak") {
			continue
		}

		stem := strings.TrimSuffix(file, path.Ext(file))
		bundle := PakBundle{Pak: file, Files: []string{file}}

		for _, ext := range pakCompanionExtensions {
			if companion, ok := present[strings.ToLower(stem+ext)]; ok {
				bundle.Files = append(bundle.Files, companion)
			}
		}

		sort.Strings(bundle.Files)
		bundles = append(bundles, bundle)
	}

	return bundles
}

func ue4ssUnit(files []string, metadataPath string) *UE4SSUnit {
	root := ue4ssRoot(files)
	unit := &UE4SSUnit{Root: root}

	for _, file := range files {
		if file == metadataPath {
			continue
		}

		rel := file
		if root != "." {
			if !strings.HasPrefix(file, root+"/") {
				continue
			}

			rel = strings.TrimPrefix(file, root+"/")
		}

		unit.Files = append(unit.Files, rel)
	}

	return unit
}

// ue4ssRoot returns the parent of the tree's Scripts directory when there is exactly one,
// else ".".
func ue4ssRoot(files []string) string {
	roots := map[string]bool{}

	for _, file := range files {
		parts := strings.Split(file, "/")
		for i := range len(parts) - 1 {
			if strings.EqualFold(parts[i], ScriptsDirName) {
				roots[path.Join(append([]string{"."}, parts[:i]...)...)] = true

				break
			}
		}
	}

	if len(roots) != 1 {
		return "."
	}

	for root := range roots {
		return root
	}

	return "."
}
