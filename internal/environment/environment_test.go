package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/webpacker/internal/config"
	"github.com/wolfeidau/webpacker/internal/configerr"
	"github.com/wolfeidau/webpacker/internal/merge"
	"github.com/wolfeidau/webpacker/internal/settings"
)

func setupSource(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, "app/javascript/packs", f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("export {}\n"), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app/javascript/packs"), 0o755))
	return root
}

func newTestEnvironment(t *testing.T, root string, mutate ...func(*Options)) *Environment {
	t.Helper()
	opts := Options{
		SourceRoot:    filepath.Join(root, "app/javascript"),
		EntryPath:     "packs",
		Extensions:    []string{".ts"},
		ResolvedPaths: []string{"vendor/js"},
		OutputPath:    filepath.Join(root, "public/packs"),
		PublicPath:    "/packs/",
		Env:           map[string]string{"NODE_ENV": "test"},
	}
	for _, m := range mutate {
		m(&opts)
	}
	env, err := New(opts)
	require.NoError(t, err)
	return env
}

func TestNew(t *testing.T) {
	t.Run("discovers entries", func(t *testing.T) {
		root := setupSource(t, "pages/home.ts", "pages/about.ts")
		env := newTestEnvironment(t, root)

		packs := filepath.Join(root, "app/javascript/packs")
		expected := map[string]any{
			"pages/home":  filepath.Join(packs, "pages/home.ts"),
			"pages/about": filepath.Join(packs, "pages/about.ts"),
		}
		require.Equal(t, expected, env.ToWebpackConfig().Mapping("entry"))
		require.Len(t, env.Entries(), 2)
	})

	t.Run("assembles defaults", func(t *testing.T) {
		root := setupSource(t)
		env := newTestEnvironment(t, root)
		cfg := env.ToWebpackConfig()

		assert.Equal(t, OutputFilename, cfg.String("output.filename"))
		assert.Equal(t, ChunkFilename, cfg.String("output.chunkFilename"))
		assert.Equal(t, filepath.Join(root, "public/packs"), cfg.String("output.path"))
		assert.Equal(t, "/packs/", cfg.String("output.publicPath"))
		assert.Empty(t, cfg.Sequence("module.rules"))
		assert.Equal(t, []any{".ts"}, cfg.Sequence("resolve.extensions"))
		assert.Equal(t, []any{"node_modules"}, cfg.Sequence("resolveLoader.modules"))

		// resolution order: source root, node_modules, resolved paths
		assert.Equal(t, []any{
			filepath.Join(root, "app/javascript"),
			"node_modules",
			"vendor/js",
		}, cfg.Sequence("resolve.modules"))

		plugins := cfg.Sequence("plugins")
		require.Len(t, plugins, 3)
		assert.Equal(t, map[string]any(EnvironmentPlugin(map[string]string{"NODE_ENV": "test"})), plugins[0])
		assert.Equal(t, map[string]any(ExtractTextPlugin(StylesheetFilename)), plugins[1])
		assert.Equal(t, map[string]any(ManifestPlugin("/packs/", true)), plugins[2])
	})

	t.Run("uses supplied manifest plugin and loaders", func(t *testing.T) {
		root := setupSource(t)
		custom := Plugin{"name": "CustomManifest"}
		env := newTestEnvironment(t, root, func(o *Options) {
			o.ManifestPlugin = custom
			o.Loaders = DefaultLoaders()
		})
		cfg := env.ToWebpackConfig()

		assert.Equal(t, map[string]any(custom), cfg.Sequence("plugins")[2])
		assert.Len(t, cfg.Sequence("module.rules"), len(DefaultLoaders()))
	})

	t.Run("zero extensions fails", func(t *testing.T) {
		root := setupSource(t)
		_, err := New(Options{SourceRoot: filepath.Join(root, "app/javascript"), EntryPath: "packs"})
		require.ErrorIs(t, err, configerr.ErrConfiguration)
	})

	t.Run("missing entry directory fails", func(t *testing.T) {
		_, err := New(Options{SourceRoot: t.TempDir(), EntryPath: "packs", Extensions: []string{".js"}})
		require.ErrorIs(t, err, configerr.ErrDiscovery)
	})

	t.Run("malformed policy fails", func(t *testing.T) {
		root := setupSource(t)
		_, err := New(Options{
			SourceRoot: filepath.Join(root, "app/javascript"),
			EntryPath:  "packs",
			Extensions: []string{".js"},
			Policy:     merge.Policy{"module..rules": merge.Append},
		})
		require.ErrorIs(t, err, configerr.ErrConfiguration)
	})
}

func TestEnvironment_AddLoader(t *testing.T) {
	root := setupSource(t)
	env := newTestEnvironment(t, root, func(o *Options) {
		o.Loaders = []LoaderFactory{func() Rule { return LoaderRule("js", ".js") }}
	})

	r1 := LoaderRule("ts", ".ts")
	r2 := LoaderRule("css", ".css")
	require.NoError(t, env.AddLoader(r1))
	require.NoError(t, env.AddLoader(r2))

	require.Equal(t, []any{
		map[string]any(LoaderRule("js", ".js")),
		map[string]any(r1),
		map[string]any(r2),
	}, env.ToWebpackConfig().Sequence("module.rules"))

	t.Run("several rules at once", func(t *testing.T) {
		require.NoError(t, env.AddLoader(LoaderRule("json", ".json"), LoaderRule("file", ".png")))
		require.Len(t, env.ToWebpackConfig().Sequence("module.rules"), 5)
	})

	t.Run("overwritten parent keeps existing rules", func(t *testing.T) {
		env := newTestEnvironment(t, root, func(o *Options) {
			o.Loaders = []LoaderFactory{func() Rule { return LoaderRule("js", ".js") }}
			o.Policy = merge.Policy{"module": merge.Overwrite}
		})
		_, err := env.MergeConfig(config.Configuration{"module": map[string]any{
			"rules":  []any{map[string]any(LoaderRule("js", ".js"))},
			"strict": true,
		}})
		require.NoError(t, err)

		require.NoError(t, env.AddLoader(r1))
		require.NoError(t, env.AddLoader(r2))

		module := env.ToWebpackConfig().Mapping("module")
		assert.Equal(t, true, module["strict"])
		assert.Equal(t, []any{
			map[string]any(LoaderRule("js", ".js")),
			map[string]any(r1),
			map[string]any(r2),
		}, module["rules"])
	})
}

func TestEnvironment_AddPlugin(t *testing.T) {
	root := setupSource(t)
	env := newTestEnvironment(t, root)
	defaults := env.ToWebpackConfig().Sequence("plugins")

	p := Plugin{"name": "BannerPlugin", "options": map[string]any{"banner": "hi"}}
	require.NoError(t, env.AddPlugin(p))

	plugins := env.ToWebpackConfig().Sequence("plugins")
	require.Len(t, plugins, len(defaults)+1)
	require.Equal(t, defaults, plugins[:len(defaults)])
	require.Equal(t, []any{map[string]any(p)}, plugins[len(defaults):])
}

func TestEnvironment_MergeConfig(t *testing.T) {
	root := setupSource(t, "application.ts")
	env := newTestEnvironment(t, root)

	merged, err := env.MergeConfig(config.Configuration{
		"entry":   map[string]any{"vendor": "/abs/vendor.js"},
		"output":  map[string]any{"publicPath": "https://cdn.example.com/packs/"},
		"devtool": "source-map",
	})
	require.NoError(t, err)

	assert.Len(t, merged.Mapping("entry"), 2)
	assert.Equal(t, "https://cdn.example.com/packs/", merged.String("output.publicPath"))
	assert.Equal(t, OutputFilename, merged.String("output.filename"))
	assert.Equal(t, "source-map", merged.String("devtool"))
	assert.Equal(t, merged, env.ToWebpackConfig())

	t.Run("returned value does not alias internal state", func(t *testing.T) {
		merged.Mapping("output")["publicPath"] = "changed"
		assert.Equal(t, "https://cdn.example.com/packs/", env.ToWebpackConfig().String("output.publicPath"))
	})
}

func TestEnvironment_SnapshotIsolation(t *testing.T) {
	root := setupSource(t)
	env := newTestEnvironment(t, root)

	before := env.ToWebpackConfig()
	require.NoError(t, env.AddPlugin(Plugin{"name": "Extra"}))

	assert.Len(t, before.Sequence("plugins"), 3)
	assert.Len(t, env.ToWebpackConfig().Sequence("plugins"), 4)
}

func TestEnvironment_Finalize(t *testing.T) {
	root := setupSource(t)
	env := newTestEnvironment(t, root)

	// reading does not freeze
	_ = env.ToWebpackConfig()
	require.NoError(t, env.AddPlugin(Plugin{"name": "Extra"}))

	final := env.Finalize()
	require.True(t, env.Finalized())

	require.ErrorIs(t, env.AddLoader(LoaderRule("ts", ".ts")), configerr.ErrLifecycle)
	require.ErrorIs(t, env.AddPlugin(Plugin{"name": "Late"}), configerr.ErrLifecycle)
	_, err := env.MergeConfig(config.Configuration{"devtool": "eval"})
	require.ErrorIs(t, err, configerr.ErrLifecycle)

	require.Equal(t, final, env.ToWebpackConfig())
}

func TestFromSettings(t *testing.T) {
	s, err := settings.Load("", "production", "/srv/app", map[string]string{"ASSET_HOST": "https://cdn.example.com"})
	require.NoError(t, err)

	opts := FromSettings(s, map[string]string{"A": "1"})
	assert.Equal(t, "/srv/app/app/javascript", opts.SourceRoot)
	assert.Equal(t, "packs", opts.EntryPath)
	assert.Equal(t, "/srv/app/public/packs", opts.OutputPath)
	assert.Equal(t, "https://cdn.example.com/packs/", opts.PublicPath)
	assert.Equal(t, map[string]string{"A": "1"}, opts.Env)
	assert.NotEmpty(t, opts.Loaders)
}
