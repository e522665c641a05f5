package transport

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Navigator moves the user to an application route, eg. "/login".
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a func to a Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// NopNavigator ignores navigations.
type NopNavigator struct{}

func (NopNavigator) Navigate(string) {}

// Saver stores downloaded files and returns where they were saved.
type Saver interface {
	Save(filename string, r io.Reader) (string, error)
}

// DirSaver saves downloads into Dir.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(filename string, r io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, `\`, "/")))
	if name == "/" || name == "." {
		name = "download"
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating download directory")
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating download file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrap(err, "writing download file")
	}
	return path, errors.Wrap(f.Close(), "closing download file")
}
