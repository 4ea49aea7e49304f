package fetcher

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Convention names the segment naming scheme detected from a source filename
type Convention string

const (
	ConventionUnderscore Convention = "underscore"
	ConventionHyphen     Convention = "hyphen"
)

// Pattern produces the URL and filename of the n-th segment of a source
type Pattern struct {
	Convention Convention

	base   url.URL
	dir    string
	prefix string
	suffix string
	width  int
}

// DetectPattern derives the segment pattern from the first segment's URL.
// The separator appearing first in the filename selects the convention:
// "_" replaces the trailing token with "{n}.ts", "-" replaces the second token with "{n}".
func DetectPattern(sourceURL string) (*Pattern, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, &Error{Kind: KindUnrecognizedFormat, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Kind: KindUnrecognizedFormat, Err: fmt.Errorf("unsupported url %q", sourceURL)}
	}

	cut := strings.LastIndex(u.Path, "/")
	dir, name := u.Path[:cut+1], u.Path[cut+1:]

	p := &Pattern{base: *u, dir: dir}
	p.base.RawPath = ""
	p.base.Fragment = ""

	underscore := strings.Index(name, "_")
	hyphen := strings.Index(name, "-")
	switch {
	case underscore > 0 && (hyphen < 0 || underscore < hyphen):
		tokens := strings.Split(name, "_")
		last := tokens[len(tokens)-1]
		p.Convention = ConventionUnderscore
		p.prefix = strings.Join(tokens[:len(tokens)-1], "_") + "_"
		p.suffix = ".ts"
		p.width = paddedWidth(strings.TrimSuffix(last, path.Ext(last)))
	case hyphen > 0:
		tokens := strings.Split(name, "-")
		token := tokens[1]
		p.Convention = ConventionHyphen
		p.prefix = tokens[0] + "-"
		if len(tokens) > 2 {
			p.suffix = "-" + strings.Join(tokens[2:], "-")
		} else {
			p.suffix = path.Ext(token)
			token = strings.TrimSuffix(token, p.suffix)
		}
		if token == "" {
			return nil, &Error{Kind: KindUnrecognizedFormat, Err: fmt.Errorf("empty index token in %q", name)}
		}
		p.width = paddedWidth(token)
	default:
		return nil, &Error{Kind: KindUnrecognizedFormat, Err: fmt.Errorf("no known naming convention matches %q", name)}
	}

	return p, nil
}

// paddedWidth returns the width of a zero-padded numeric token, or 0
func paddedWidth(token string) int {
	if len(token) < 2 || token[0] != '0' {
		return 0
	}
	if _, err := strconv.Atoi(token); err != nil {
		return 0
	}
	return len(token)
}

// Filename returns the name of the n-th segment
func (p *Pattern) Filename(n int) string {
	return p.prefix + fmt.Sprintf("%0*d", p.width, n) + p.suffix
}

// URL returns the address of the n-th segment, keeping the source's query string
func (p *Pattern) URL(n int) string {
	u := p.base
	u.Path = p.dir + p.Filename(n)
	return u.String()
}
