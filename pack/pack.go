// Package pack turns a function source directory into the zip package the
// platform accepts for deployment.
package pack

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"agenthub/common"
)

// Manifest describes a hosted function, read from function.yml in the
// package root.
type Manifest struct {
	Name    string            `json:"name" yaml:"name" validate:"required"`
	Runtime string            `json:"runtime" yaml:"runtime" validate:"required"`
	Entry   string            `json:"entry,omitempty" yaml:"entry,omitempty"`
	Image   string            `json:"image,omitempty" yaml:"image,omitempty"`
	Port    int               `json:"port,omitempty" yaml:"port,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func LoadManifest(dir string) (*Manifest, error) {
	manifestByte, err := os.ReadFile(filepath.Join(dir, common.ManifestFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", common.ManifestFileName)
	}
	manifest, err := parseManifest(manifestByte)
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// Archive zips the whole source tree, dropping VCS and dependency-cache
// directories. Paths inside the archive are slash-separated and relative to
// dir.
func Archive(dir string) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		entry, err := writer.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, file)
		file.Close()
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "archive %s", dir)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func parseManifest(manifestByte []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(manifestByte, &manifest); err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	if err := validator.New().Struct(&manifest); err != nil {
		return nil, errors.Wrap(err, "invalid manifest")
	}
	if manifest.Entry == "" {
		manifest.Entry = defaultEntry(manifest.Runtime)
	}
	return &manifest, nil
}

func defaultEntry(runtime string) string {
	switch {
	case strings.HasPrefix(runtime, "python"):
		return "main.py"
	case strings.HasPrefix(runtime, "node"):
		return "index.js"
	default:
		return "main"
	}
}
