package fswalk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TemplateFile stores absolute and root-relative paths for one template.
type TemplateFile struct {
	AbsPath string
	RelPath string
}

// DefaultPattern matches every Handlebars template below the root.
const DefaultPattern = "**/*.hbs"

// normalizePattern returns a usable glob and defaults to DefaultPattern.
func normalizePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return DefaultPattern
	}
	return filepath.ToSlash(pattern)
}

// Match reports whether path, absolute or relative to the working directory,
// lies under root and matches pattern. It returns the root-relative path.
func Match(root string, pattern string, path string) (string, bool, error) {
	relPath, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", false, nil
	}
	matched, err := doublestar.PathMatch(normalizePattern(pattern), filepath.ToSlash(relPath))
	if err != nil {
		return "", false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return relPath, matched, nil
}

// Dirs lists root and every directory below it, skipping hidden ones.
func Dirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(filepath.Clean(root), func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != filepath.Clean(root) && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// DiscoverTemplates finds files under root matching the glob pattern.
func DiscoverTemplates(root string, pattern string) ([]TemplateFile, error) {
	root = filepath.Clean(root)
	matcher := normalizePattern(pattern)

	var files []TemplateFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, matched, err := Match(root, matcher, path)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}

		files = append(files, TemplateFile{
			AbsPath: path,
			RelPath: relPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	return files, nil
}

// MirrorOutputPath maps a relative input path to an output path and extension.
func MirrorOutputPath(outRoot string, relPath string, ext string) string {
	cleanRel := filepath.Clean(relPath)
	if ext != "" {
		oldExt := filepath.Ext(cleanRel)
		cleanRel = strings.TrimSuffix(cleanRel, oldExt) + ext
	}
	return filepath.Join(outRoot, cleanRel)
}

// EnsureParentDir creates the parent directory tree for a target file path.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
