package environment

// Plugin describes an output plugin handed to the bundler.
type Plugin map[string]any

// Rule describes a transformation rule, e.g. {"test": [".ts"], "loader": "ts"}.
type Rule map[string]any

// LoaderFactory produces a transformation rule for the default module rules.
type LoaderFactory func() Rule

const (
	EnvironmentPluginName = "EnvironmentPlugin"
	ExtractTextPluginName = "ExtractTextPlugin"
	ManifestPluginName    = "ManifestPlugin"
	CompressionPluginName = "CompressionPlugin"
)

const (
	// RuleTest holds the file extensions a rule applies to
	RuleTest = "test"
	// RuleLoader names the loader applied to matching files
	RuleLoader = "loader"
)

// EnvironmentPlugin injects every variable of the snapshot into the build.
func EnvironmentPlugin(env map[string]string) Plugin {
	vars := make(map[string]any, len(env))
	for k, v := range env {
		vars[k] = v
	}
	return Plugin{
		"name":    EnvironmentPluginName,
		"options": map[string]any{"variables": vars},
	}
}

// ExtractTextPlugin writes stylesheets to separate files named by filename.
func ExtractTextPlugin(filename string) Plugin {
	return Plugin{
		"name":    ExtractTextPluginName,
		"options": map[string]any{"filename": filename},
	}
}

// ManifestPlugin writes the entry name to output path manifest.
func ManifestPlugin(publicPath string, writeToFileEmit bool) Plugin {
	return Plugin{
		"name": ManifestPluginName,
		"options": map[string]any{
			"publicPath":      publicPath,
			"writeToFileEmit": writeToFileEmit,
			"fileName":        "manifest.json",
		},
	}
}

// CompressionPlugin writes precompressed copies of outputs with the given extensions.
func CompressionPlugin(algorithms []string, extensions []string) Plugin {
	algs := make([]any, len(algorithms))
	for i, a := range algorithms {
		algs[i] = a
	}
	exts := make([]any, len(extensions))
	for i, e := range extensions {
		exts[i] = e
	}
	return Plugin{
		"name": CompressionPluginName,
		"options": map[string]any{
			"algorithms": algs,
			"test":       exts,
		},
	}
}

// LoaderRule builds a rule applying loader to files with the given extensions.
func LoaderRule(loader string, extensions ...string) Rule {
	test := make([]any, len(extensions))
	for i, e := range extensions {
		test[i] = e
	}
	return Rule{RuleTest: test, RuleLoader: loader}
}

// DefaultLoaders returns the built-in rule registry covering scripts, styles and static assets.
func DefaultLoaders() []LoaderFactory {
	return []LoaderFactory{
		func() Rule { return LoaderRule("jsx", ".js", ".jsx", ".mjs") },
		func() Rule { return LoaderRule("tsx", ".tsx") },
		func() Rule { return LoaderRule("ts", ".ts") },
		func() Rule { return LoaderRule("css", ".css") },
		func() Rule { return LoaderRule("json", ".json") },
		func() Rule {
			return LoaderRule("file", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".woff", ".woff2", ".eot", ".ttf")
		},
	}
}
