package entries

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/wolfeidau/webpacker/internal/configerr"
)

const maxLinkDepth = 40

// Map maps an entry name such as "admin/dashboard" to the absolute path of its source file.
type Map map[string]string

// Names returns the entry names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discoverer scans an entry directory for files to compile.
type Discoverer struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewDiscoverer creates a discoverer over the given filesystem, nil means the OS filesystem.
func NewDiscoverer(fs afero.Fs, logger zerolog.Logger) *Discoverer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Discoverer{fs: fs, logger: logger}
}

// Discover runs a discovery with a disabled logger.
func Discover(fs afero.Fs, sourceRoot, entrySubdir string, extensions []string) (Map, error) {
	return NewDiscoverer(fs, zerolog.Nop()).Discover(sourceRoot, entrySubdir, extensions)
}

// Discover walks sourceRoot/entrySubdir and returns every file whose extension is one of
// extensions, keyed by its path relative to the entry directory without the extension.
//
// When two files produce the same name the one visited last wins.
func (d *Discoverer) Discover(sourceRoot, entrySubdir string, extensions []string) (Map, error) {
	exts, err := normaliseExtensions(extensions)
	if err != nil {
		return nil, err
	}

	pattern := Pattern(exts)
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: invalid extension pattern %q: %v", configerr.ErrConfiguration, pattern, err)
	}

	entryRoot, err := filepath.Abs(filepath.Join(sourceRoot, entrySubdir))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve %q: %v", configerr.ErrDiscovery, entrySubdir, err)
	}

	info, err := d.fs.Stat(entryRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: entry directory %q: %v", configerr.ErrDiscovery, entryRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: entry path %q is not a directory", configerr.ErrDiscovery, entryRoot)
	}

	walkRoot, err := d.resolveLinks(entryRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve entry directory %q: %v", configerr.ErrDiscovery, entryRoot, err)
	}

	result := Map{}
	err = afero.Walk(d.fs, walkRoot, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		// entries keep the path under the configured root, not the link target
		p = filepath.Join(entryRoot, rel)
		rel = filepath.ToSlash(rel)

		if !matcher.Match("/" + rel) {
			return nil
		}

		name := entryName(rel, exts)
		if name == "" {
			return nil
		}

		if prev, ok := result[name]; ok {
			d.logger.Debug().Str("entry", name).Str("previous", prev).Str("path", p).Msg("Duplicate entry name")
		}
		result[name] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk %q: %v", configerr.ErrDiscovery, entryRoot, err)
	}

	d.logger.Debug().Str("root", entryRoot).Strs("entries", result.Names()).Msg("Discovered entries")

	return result, nil
}

// resolveLinks follows symlinks on root itself, which afero.Walk would otherwise treat as a
// file. Filesystems without link support return root unchanged.
func (d *Discoverer) resolveLinks(root string) (string, error) {
	lstater, ok := d.fs.(afero.Lstater)
	if !ok {
		return root, nil
	}
	reader, ok := d.fs.(afero.LinkReader)
	if !ok {
		return root, nil
	}

	for range maxLinkDepth {
		info, lstatCalled, err := lstater.LstatIfPossible(root)
		if err != nil {
			return "", err
		}
		if !lstatCalled || info.Mode()&os.ModeSymlink == 0 {
			return root, nil
		}

		target, err := reader.ReadlinkIfPossible(root)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(root), target)
		}
		root = target
	}
	return "", errors.New("too many levels of symbolic links")
}

// Pattern builds the glob matching any file with one of the extensions at any depth.
func Pattern(extensions []string) string {
	if len(extensions) == 1 {
		return "**/*" + glob.QuoteMeta(extensions[0])
	}
	quoted := make([]string, len(extensions))
	for i, ext := range extensions {
		quoted[i] = glob.QuoteMeta(ext)
	}
	return "**/*{" + strings.Join(quoted, ",") + "}"
}

func normaliseExtensions(extensions []string) ([]string, error) {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		return nil, fmt.Errorf("%w: at least one extension must be configured to compile", configerr.ErrConfiguration)
	}
	return exts, nil
}

// entryName strips the longest configured extension matching rel, keeping any other dots.
func entryName(rel string, extensions []string) string {
	dir, base := path.Split(rel)

	matched := ""
	for _, ext := range extensions {
		if strings.HasSuffix(base, ext) && len(ext) > len(matched) {
			matched = ext
		}
	}

	stem := strings.TrimSuffix(base, matched)
	if stem == "" {
		return ""
	}
	return path.Join(dir, stem)
}
