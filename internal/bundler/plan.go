package bundler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/webpacker/internal/config"
	"github.com/wolfeidau/webpacker/internal/configerr"
	"github.com/wolfeidau/webpacker/internal/environment"
)

var (
	loaders = map[string]api.Loader{
		"js":      api.LoaderJS,
		"jsx":     api.LoaderJSX,
		"ts":      api.LoaderTS,
		"tsx":     api.LoaderTSX,
		"css":     api.LoaderCSS,
		"json":    api.LoaderJSON,
		"text":    api.LoaderText,
		"file":    api.LoaderFile,
		"dataurl": api.LoaderDataURL,
		"base64":  api.LoaderBase64,
		"binary":  api.LoaderBinary,
		"copy":    api.LoaderCopy,
		"empty":   api.LoaderEmpty,
	}

	hashPlaceholder = regexp.MustCompile(`\[(chunkhash|contenthash|hash)(:\d+)?\]`)
	identifier      = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// Plan is a configuration translated into esbuild options plus the plugin work done
// around the build.
type Plan struct {
	Options     api.BuildOptions
	Manifest    *ManifestOptions
	Compression *CompressionOptions
	// absolute input path to entry name
	Inputs map[string]string
	// symlink-free input path to entry name, for metafiles reporting real paths
	realInputs map[string]string
}

// EntryName returns the entry built from the absolute input path p.
func (p *Plan) EntryName(input string) (string, bool) {
	if name, ok := p.Inputs[input]; ok {
		return name, true
	}
	name, ok := p.realInputs[input]
	return name, ok
}

// NewPlan translates cfg into esbuild build options.
func NewPlan(cfg config.Configuration, bc Config) (*Plan, error) {
	if !filepath.IsAbs(bc.WorkingDir) {
		return nil, fmt.Errorf("%w: working directory %q must be absolute", configerr.ErrConfiguration, bc.WorkingDir)
	}

	plan := &Plan{Inputs: map[string]string{}, realInputs: map[string]string{}}

	entry := cfg.Mapping("entry")
	if len(entry) == 0 {
		return nil, ErrNoEntryPoints
	}
	names := make([]string, 0, len(entry))
	for name := range entry {
		names = append(names, name)
	}
	sort.Strings(names)

	entryPoints := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		input, ok := entry[name].(string)
		if !ok {
			return nil, fmt.Errorf("%w: entry %q must be a file path", configerr.ErrConfiguration, name)
		}
		if !filepath.IsAbs(input) {
			input = filepath.Join(bc.WorkingDir, input)
		}
		entryPoints = append(entryPoints, api.EntryPoint{InputPath: input, OutputPath: name})
		plan.Inputs[input] = name
		if resolved, err := filepath.EvalSymlinks(input); err == nil && resolved != input {
			plan.realInputs[resolved] = name
		}
	}

	outdir := cfg.String("output.path")
	if outdir == "" {
		return nil, fmt.Errorf("%w: output.path is required", configerr.ErrConfiguration)
	}

	loaderMap, err := translateRules(cfg.Sequence("module.rules"))
	if err != nil {
		return nil, err
	}

	plan.Options = api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       bc.WorkingDir,
		Bundle:              true,
		Splitting:           bc.Splitting,
		Write:               true,
		JSX:                 api.JSXAutomatic,
		Outdir:              outdir,
		PublicPath:          cfg.String("output.publicPath"),
		EntryNames:          translateTemplate(cfg.String("output.filename"), true),
		ChunkNames:          translateTemplate(cfg.String("output.chunkFilename"), false),
		AssetNames:          "media/[name]-[hash]",
		Format:              api.FormatESModule,
		MinifyWhitespace:    bc.Minify,
		MinifyIdentifiers:   bc.Minify,
		MinifySyntax:        bc.Minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(bc.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:            true,
		Loader:              loaderMap,
		ResolveExtensions:   toStrings(cfg.Sequence("resolve.extensions")),
		NodePaths:           nodePaths(cfg.Sequence("resolve.modules"), bc.WorkingDir),
		Define:              map[string]string{},
		LogLevel:            api.LogLevelSilent,
	}

	for _, node := range cfg.Sequence("plugins") {
		if err := plan.applyPlugin(node); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

func (p *Plan) applyPlugin(node any) error {
	plugin, ok := config.AsMapping(node)
	if !ok {
		return fmt.Errorf("%w: plugin must be a mapping, got %T", configerr.ErrConfiguration, node)
	}
	name, _ := plugin["name"].(string)
	options, _ := config.AsMapping(plugin["options"])

	switch name {
	case environment.EnvironmentPluginName:
		vars, _ := config.AsMapping(options["variables"])
		for key, value := range vars {
			if !identifier.MatchString(key) {
				continue
			}
			literal, err := json.Marshal(fmt.Sprint(value))
			if err != nil {
				return err
			}
			p.Options.Define["process.env."+key] = string(literal)
		}
	case environment.ExtractTextPluginName:
		// esbuild always writes imported stylesheets next to their entry
	case environment.ManifestPluginName:
		m := &ManifestOptions{FileName: "manifest.json", PublicPath: p.Options.PublicPath}
		if v, ok := options["fileName"].(string); ok && v != "" {
			m.FileName = v
		}
		if v, ok := options["publicPath"].(string); ok && v != "" {
			m.PublicPath = v
		}
		if v, ok := options["writeToFileEmit"].(bool); ok {
			m.WriteToFileEmit = v
		}
		p.Manifest = m
	case environment.CompressionPluginName:
		p.Compression = &CompressionOptions{
			Algorithms: toStrings(sequenceOf(options["algorithms"])),
			Extensions: toStrings(sequenceOf(options["test"])),
		}
	default:
		log.Warn().Str("plugin", name).Msg("Plugin not supported by esbuild, skipping")
	}
	return nil
}

func translateRules(rules []any) (map[string]api.Loader, error) {
	out := map[string]api.Loader{}
	for i, node := range rules {
		rule, ok := config.AsMapping(node)
		if !ok {
			return nil, fmt.Errorf("%w: module.rules[%d] must be a mapping", configerr.ErrConfiguration, i)
		}
		name, _ := rule[environment.RuleLoader].(string)
		loader, ok := loaders[name]
		if !ok {
			return nil, fmt.Errorf("%w: module.rules[%d] has unsupported loader %q", configerr.ErrConfiguration, i, name)
		}
		for _, ext := range toStrings(sequenceOf(rule[environment.RuleTest])) {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			out[ext] = loader
		}
	}
	return out, nil
}

// translateTemplate converts a webpack file name template such as "[name]-[chunkhash].js"
// into an esbuild naming template. esbuild appends the extension itself.
func translateTemplate(tmpl string, entry bool) string {
	if tmpl == "" {
		if entry {
			return "[dir]/[name]-[hash]"
		}
		return "[name]-[hash]"
	}
	tmpl = strings.TrimSuffix(tmpl, filepath.Ext(tmpl))
	tmpl = hashPlaceholder.ReplaceAllString(tmpl, "[hash]")
	if entry {
		tmpl = strings.ReplaceAll(tmpl, "[name]", "[dir]/[name]")
	}
	return tmpl
}

// nodePaths returns the extra resolution directories; node_modules is searched by esbuild.
func nodePaths(modules []any, workingDir string) []string {
	var out []string
	for _, m := range toStrings(modules) {
		if m == "node_modules" {
			continue
		}
		if !filepath.IsAbs(m) {
			m = filepath.Join(workingDir, m)
		}
		out = append(out, m)
	}
	return out
}

func sequenceOf(v any) []any {
	if s, ok := config.AsSequence(v); ok {
		return s
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

func toStrings(seq []any) []string {
	out := make([]string, 0, len(seq))
	for _, v := range seq {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
