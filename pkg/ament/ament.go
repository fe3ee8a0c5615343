// Package ament resolves ROS 2 package share directories the way the ament
// resource index lays them out on disk.
package ament

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const PrefixPathEnv = "AMENT_PREFIX_PATH"

var ErrPackageNotFound = errors.New("package not found")

type Resolver interface {
	ShareDirectory(pkg string) (string, error)
}

// Index looks packages up under a list of install prefixes. The first prefix
// containing the package marker wins.
type Index struct {
	Prefixes []string
}

// NewIndex splits an AMENT_PREFIX_PATH style value into prefixes.
func NewIndex(prefixPath string) *Index {
	var prefixes []string
	for _, p := range filepath.SplitList(prefixPath) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		prefixes = append(prefixes, p)
	}
	return &Index{Prefixes: prefixes}
}

func (i *Index) ShareDirectory(pkg string) (string, error) {
	if pkg == "" {
		return "", errors.New("empty package name")
	}
	for _, prefix := range i.Prefixes {
		marker := filepath.Join(prefix, "share", "ament_index", "resource_index", "packages", pkg)
		if _, err := os.Stat(marker); err != nil {
			continue
		}
		return filepath.Join(prefix, "share", pkg), nil
	}
	return "", errors.Wrapf(ErrPackageNotFound, "%s (searched %d prefixes)", pkg, len(i.Prefixes))
}

// Static maps package names to share directories.
type Static map[string]string

func (s Static) ShareDirectory(pkg string) (string, error) {
	dir, ok := s[pkg]
	if !ok || dir == "" {
		return "", errors.Wrap(ErrPackageNotFound, pkg)
	}
	return dir, nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) ShareDirectory(pkg string) (string, error) {
	var lastErr error
	for _, r := range c {
		if r == nil {
			continue
		}
		dir, err := r.ShareDirectory(pkg)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, ErrPackageNotFound) {
			return "", err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Wrap(ErrPackageNotFound, pkg)
	}
	return "", lastErr
}
