package rendercheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/runtime"
)

// Status reports the outcome of render validation for one template.
type Status string

const (
	StatusRendered Status = "rendered"
	StatusNoSample Status = "no_sample"
)

// SamplePath returns the sidecar JSON sample path for a template relative path.
func SamplePath(samplesRoot string, relTemplatePath string) string {
	return filepath.Join(samplesRoot, relTemplatePath+".json")
}

func normalizeJSONNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeJSONNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeJSONNumbers(item)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		f, err := v.Float64()
		if err != nil {
			return v
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int(f)
		}
		return f
	default:
		return value
	}
}

// DecodeSample parses JSON template data. Integral numbers become ints.
func DecodeSample(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return normalizeJSONNumbers(payload), nil
}

// LoadSample reads and decodes the sample at path. The boolean is false when
// no sample exists.
func LoadSample(path string) (any, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read sample %q: %w", path, err)
	}
	payload, err := DecodeSample(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode sample JSON %q: %w", path, err)
	}
	return payload, true, nil
}

// Options tunes a render.
type Options struct {
	Env        *runtime.Env
	Contextual *html.Node
	Minify     bool
}

// Render executes tmpl against data and serializes the produced nodes.
// Modifiers run once the nodes are attached to a scratch parent.
func Render(name string, tmpl *runtime.Template, data any, opts Options) (string, error) {
	res, err := tmpl.Render(data, opts.Env, opts.Contextual)
	if err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	defer res.Destroy()

	host := &html.Node{Type: html.ElementNode, Data: "body"}
	if opts.Contextual != nil {
		host = &html.Node{Type: html.ElementNode, Data: opts.Contextual.Data, DataAtom: opts.Contextual.DataAtom, Namespace: opts.Contextual.Namespace}
	}
	if err := res.AppendTo(host); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}

	var buf bytes.Buffer
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("serialize template %q: %w", name, err)
		}
	}
	out := buf.String()
	if opts.Minify {
		return Minify(out)
	}
	return out, nil
}

// RenderWithSample renders tmpl with the sample at samplePath, reporting
// StatusNoSample when there is none.
func RenderWithSample(name string, tmpl *runtime.Template, samplePath string, opts Options) (Status, string, error) {
	payload, ok, err := LoadSample(samplePath)
	if err != nil {
		return StatusNoSample, "", err
	}
	if !ok {
		return StatusNoSample, "", nil
	}
	out, err := Render(name, tmpl, payload, opts)
	if err != nil {
		return StatusNoSample, "", fmt.Errorf("%w (sample %q)", err, samplePath)
	}
	return StatusRendered, out, nil
}

var (
	minifier *minify.M
	once     sync.Once
)

func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &minhtml.Minifier{KeepEndTags: true, KeepQuotes: true})
	})
	return minifier
}

// Minify collapses whitespace and redundant markup in rendered HTML.
func Minify(htmlContent string) (string, error) {
	out, err := getMinifier().String("text/html", htmlContent)
	if err != nil {
		return "", fmt.Errorf("minify: %w", err)
	}
	return out, nil
}
