package entries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/webpacker/internal/configerr"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("export {}\n"), 0o600))
	}
}

func TestDiscover(t *testing.T) {
	t.Run("finds pages with namespaced names", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "packs/pages/home.ts", "packs/pages/about.ts", "packs/README.md")

		got, err := Discover(nil, root, "packs", []string{".ts"})
		require.NoError(t, err)

		abs, err := filepath.Abs(filepath.Join(root, "packs"))
		require.NoError(t, err)
		require.Equal(t, Map{
			"pages/home":  filepath.Join(abs, "pages", "home.ts"),
			"pages/about": filepath.Join(abs, "pages", "about.ts"),
		}, got)
	})

	t.Run("top level files have no namespace", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "packs/application.js")

		got, err := Discover(nil, root, "packs", []string{".js"})
		require.NoError(t, err)
		require.Equal(t, []string{"application"}, got.Names())
	})

	t.Run("every match resolves to an existing absolute path", func(t *testing.T) {
		root := t.TempDir()
		files := []string{"packs/a.js", "packs/b.tsx", "packs/admin/c.ts", "packs/admin/deep/d.js", "packs/e.css"}
		writeFiles(t, root, files...)

		got, err := Discover(nil, root, "packs", []string{".js", ".ts", ".tsx"})
		require.NoError(t, err)
		require.Len(t, got, 4)

		for name, p := range got {
			assert.True(t, filepath.IsAbs(p), name)
			_, err := os.Stat(p)
			require.NoError(t, err, name)
		}
		assert.Equal(t, []string{"a", "admin/c", "admin/deep/d", "b"}, got.Names())
	})

	t.Run("only the configured extension is stripped", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "packs/widget.module.ts", "packs/styles.module.css")

		got, err := Discover(nil, root, "packs", []string{"ts", ".module.css"})
		require.NoError(t, err)
		assert.Equal(t, []string{"styles", "widget.module"}, got.Names())
	})

	t.Run("empty directory yields empty map", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "packs"), 0o755))

		got, err := Discover(nil, root, "packs", []string{".js"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty extension set is a configuration error", func(t *testing.T) {
		root := t.TempDir()

		for _, exts := range [][]string{nil, {}, {"", " "}} {
			_, err := Discover(nil, root, "", exts)
			require.ErrorIs(t, err, configerr.ErrConfiguration)
		}
	})

	t.Run("missing entry directory is a discovery error", func(t *testing.T) {
		root := t.TempDir()

		_, err := Discover(nil, root, "missing", []string{".js"})
		require.ErrorIs(t, err, configerr.ErrDiscovery)
	})

	t.Run("symlinked entry directory is followed", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "shared/packs/pages/home.ts", "shared/packs/admin/users.ts")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "app/javascript"), 0o755))
		require.NoError(t, os.Symlink(filepath.Join(root, "shared/packs"), filepath.Join(root, "app/javascript/packs")))

		got, err := Discover(nil, filepath.Join(root, "app/javascript"), "packs", []string{".ts"})
		require.NoError(t, err)

		abs, err := filepath.Abs(filepath.Join(root, "app/javascript/packs"))
		require.NoError(t, err)
		require.Equal(t, Map{
			"pages/home":  filepath.Join(abs, "pages", "home.ts"),
			"admin/users": filepath.Join(abs, "admin", "users.ts"),
		}, got)
	})

	t.Run("relative symlink chain is followed", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "real/application.js")
		require.NoError(t, os.Symlink("real", filepath.Join(root, "link")))
		require.NoError(t, os.Symlink("link", filepath.Join(root, "packs")))

		got, err := Discover(nil, root, "packs", []string{".js"})
		require.NoError(t, err)

		abs, err := filepath.Abs(filepath.Join(root, "packs"))
		require.NoError(t, err)
		require.Equal(t, Map{"application": filepath.Join(abs, "application.js")}, got)
	})

	t.Run("entry path that is a file is a discovery error", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "packs")

		_, err := Discover(nil, root, "packs", []string{".js"})
		require.ErrorIs(t, err, configerr.ErrDiscovery)
	})
}

func TestDiscover_MemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/app/javascript/packs/admin", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/app/javascript/packs/admin/dashboard.tsx", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/javascript/packs/admin/dashboard.ts", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/javascript/packs/notes.txt", []byte("x"), 0o644))

	got, err := Discover(fs, "/app/javascript", "packs", []string{".ts", ".tsx"})
	require.NoError(t, err)

	// both files map to the same name; one silently wins
	require.Len(t, got, 1)
	assert.Contains(t, []string{
		"/app/javascript/packs/admin/dashboard.ts",
		"/app/javascript/packs/admin/dashboard.tsx",
	}, got["admin/dashboard"])
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "**/*.ts", Pattern([]string{".ts"}))
	assert.Equal(t, "**/*{.js,.ts}", Pattern([]string{".js", ".ts"}))
}
