package bundler

type Config struct {
	// Working directory esbuild resolves relative paths against, must be absolute
	WorkingDir string
	// Metafile name, written to the output directory
	MetafileName string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
	// Whether to split shared code into chunks
	Splitting bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig(workingDir string) Config {
	return Config{
		WorkingDir:   workingDir,
		MetafileName: "meta.json",
		Minify:       true,
		SourceMap:    true,
		Splitting:    true,
	}
}
