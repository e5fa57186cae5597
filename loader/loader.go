// Package loader reads mock definitions from disk.
//
// A definition file holds either a single mock or a list of them, as JSON or YAML.
// Response files are resolved relative to the definition that names them.
package loader

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zerbitx/apimock/spec"
	"gopkg.in/yaml.v2"
)

type (
	// InvalidMock describes a definition that cannot be served
	InvalidMock struct {
		File   string
		Reason string
	}
)

// Error implements the error interface
func (im InvalidMock) Error() string {
	return fmt.Sprintf("invalid mock in %s: %s", im.File, im.Reason)
}

// Load reads every file matching pattern, which may use ** to match directories recursively.
// Files are read in lexical order so registration order is stable between runs.
func Load(pattern string) ([]*spec.Mock, error) {
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern %s: %w", pattern, err)
	}

	sort.Strings(files)

	var mocks []*spec.Mock
	for _, file := range files {
		loaded, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		mocks = append(mocks, loaded...)
	}

	return mocks, nil
}

// LoadFile reads the mocks defined in one file
func LoadFile(file string) ([]*spec.Mock, error) {
	content, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	var mocks []*spec.Mock
	if trimmed := bytes.TrimSpace(content); len(trimmed) > 0 && trimmed[0] == '[' {
		err = yaml.Unmarshal(content, &mocks)
	} else {
		m := &spec.Mock{}
		err = yaml.Unmarshal(content, m)
		mocks = []*spec.Mock{m}
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}

	dir := filepath.Dir(file)
	for _, m := range mocks {
		if err := validate(m); err != nil {
			return nil, InvalidMock{File: file, Reason: err.Error()}
		}

		for i := range m.Responses {
			resp := &m.Responses[i].Response
			if resp.File != "" && !filepath.IsAbs(resp.File) {
				resp.File = filepath.Join(dir, resp.File)
			}
		}
	}

	return mocks, nil
}

func validate(m *spec.Mock) error {
	if m.Expression == "" {
		return fmt.Errorf("missing expression")
	}

	if m.Method == "" {
		return fmt.Errorf("missing method")
	}

	if _, err := regexp.Compile(m.Expression); err != nil {
		return fmt.Errorf("expression %q: %w", m.Expression, err)
	}

	return nil
}
