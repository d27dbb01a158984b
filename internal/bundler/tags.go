package bundler

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	scriptTags     = template.Must(template.New("scripts").Parse(`{{range .}}<script type="module" src="{{.}}"></script>{{"\n"}}{{end}}`))
	stylesheetTags = template.Must(template.New("stylesheets").Parse(`{{range .}}<link rel="stylesheet" href="{{.}}">{{"\n"}}{{end}}`))
)

// JavascriptPackTag renders script tags for the named entries and every chunk they import.
// Shared chunks are only emitted once.
func (c *Compiler) JavascriptPackTag(names ...string) (template.HTML, error) {
	seen := map[string]bool{}
	var srcs []string
	for _, name := range names {
		scripts, err := c.LoadScripts(name)
		if err != nil {
			return "", err
		}
		for _, s := range scripts {
			if !seen[s] {
				seen[s] = true
				srcs = append(srcs, s)
			}
		}
	}
	return render(scriptTags, srcs)
}

// StylesheetPackTag renders link tags for the stylesheets of the named entries.
func (c *Compiler) StylesheetPackTag(names ...string) (template.HTML, error) {
	manifest, err := c.Manifest()
	if err != nil {
		return "", err
	}

	hrefs := make([]string, 0, len(names))
	for _, name := range names {
		href, ok := manifest.LookupPack(name, ".css")
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownEntry, name)
		}
		hrefs = append(hrefs, href)
	}
	return render(stylesheetTags, hrefs)
}

// FuncMap exposes the pack tag helpers to html templates.
func (c *Compiler) FuncMap() template.FuncMap {
	return template.FuncMap{
		"javascript_pack_tag": c.JavascriptPackTag,
		"stylesheet_pack_tag": c.StylesheetPackTag,
	}
}

func render(tmpl *template.Template, values []string) (template.HTML, error) {
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}
