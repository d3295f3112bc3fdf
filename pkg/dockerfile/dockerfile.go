// Package dockerfile renders the container build file used to package a
// Python API script for the local cluster.
package dockerfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// FileName is the build file written into the build context.
const FileName = "Dockerfile"

var (
	ErrMissingField   = errors.New("dockerfile: missing field")
	ErrInvalidPort    = errors.New("dockerfile: invalid port")
	ErrOutsideContext = errors.New("dockerfile: path outside build context")
)

var tmpl = template.Must(template.New(FileName).Parse(`FROM python:{{ .PythonVersion }}

RUN mkdir -p /api

COPY {{ .Script }} /api/api.py
COPY {{ .Requirements }} /api/requirements.txt

RUN python -m pip install -r /api/requirements.txt

EXPOSE {{ .Port }}

ENTRYPOINT ["python", "api/api.py"]
`))

// Spec holds the values substituted into the build file.
// Script and Requirements are relative to the build context.
type Spec struct {
	PythonVersion string
	Script        string
	Requirements  string
	Port          int
}

// Validate checks that every field is usable in the template.
func (s Spec) Validate() error {
	switch {
	case s.PythonVersion == "":
		return fmt.Errorf("%w: python version", ErrMissingField)
	case s.Script == "":
		return fmt.Errorf("%w: script", ErrMissingField)
	case s.Requirements == "":
		return fmt.Errorf("%w: requirements", ErrMissingField)
	case s.Port < 1 || s.Port > 65535:
		return fmt.Errorf("%w: %d", ErrInvalidPort, s.Port)
	}
	return nil
}

// Render returns the build file contents for s.
func Render(s Spec) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders s into dir/Dockerfile and returns the file path.
func Write(dir string, s Spec) (string, error) {
	data, err := Render(s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ContextPath strips "~" from p and returns it relative to the build
// context root, using forward slashes as the build file expects.
func ContextPath(root, p string) (string, error) {
	p = strings.ReplaceAll(p, "~", "")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absRoot, candidate)
	}
	rel, err := filepath.Rel(absRoot, filepath.Clean(candidate))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideContext, p)
	}
	return filepath.ToSlash(rel), nil
}
