package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RequiredFields are the front matter keys every prompt must declare.
var RequiredFields = []string{"title", "description", "phase", "route", "version"}

// ErrNoFrontMatter is returned for a prompt without a leading --- block.
var ErrNoFrontMatter = errors.New("missing front matter")

var frontMatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---`)

// FrontMatter is the YAML header of a prompt file.
type FrontMatter map[string]interface{}

// String returns the value of key rendered as text, or "".
func (f FrontMatter) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Missing returns the required fields absent from f, in declaration order.
func (f FrontMatter) Missing() []string {
	var missing []string
	for _, field := range RequiredFields {
		if _, ok := f[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// ParseFrontMatter extracts and decodes the front matter of a prompt.
func ParseFrontMatter(content []byte) (FrontMatter, error) {
	m := frontMatterRe.FindSubmatch(content)
	if m == nil {
		return nil, ErrNoFrontMatter
	}
	fm := FrontMatter{}
	if err := yaml.Unmarshal(m[1], &fm); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	return fm, nil
}

// LintResult is the check outcome of one prompt file.
type LintResult struct {
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// LintFile checks the front matter of the prompt at path.
func LintFile(path string) LintResult {
	res := LintResult{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	fm, err := ParseFrontMatter(data)
	switch {
	case errors.Is(err, ErrNoFrontMatter):
		res.Reason = "Missing front matter"
	case err != nil:
		res.Reason = "YAML parse error"
	default:
		if missing := fm.Missing(); len(missing) > 0 {
			res.Reason = "Missing " + strings.Join(missing, ", ")
		} else {
			res.OK = true
			res.Reason = "OK"
		}
	}
	return res
}

// LintDir checks every .md file under root, sorted by path.
func LintDir(root string) ([]LintResult, error) {
	var results []LintResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		results = append(results, LintFile(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk prompt directory: %w", err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
