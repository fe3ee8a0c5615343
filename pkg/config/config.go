package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/bringup/pkg/patch"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".bringup.yaml"

const (
	DefaultRos2          = "ros2"
	DefaultDeviceTimeout = 10 * time.Second
)

type File struct {
	LaunchArgs    map[string]string `yaml:"launch_args,omitempty"`
	Packages      map[string]string `yaml:"packages,omitempty"`
	StrictLidar   bool              `yaml:"strict_lidar,omitempty"`
	Ros2          string            `yaml:"ros2,omitempty"`
	DeviceTimeout string            `yaml:"device_timeout,omitempty"`
	Settle        string            `yaml:"settle,omitempty"`
	Wrap          *bool             `yaml:"wrap,omitempty"`
}

func DefaultPath(root string) string {
	return filepath.Join(root, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

func (f *File) validate() error {
	if _, err := parseDuration("device_timeout", f.DeviceTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("settle", f.Settle); err != nil {
		return err
	}
	for name, dir := range f.Packages {
		if name == "" {
			return errors.New("packages: empty package name")
		}
		if dir == "" {
			return errors.Errorf("packages.%s: empty share directory", name)
		}
	}
	return nil
}

// Overrides returns launch_args as the lowest-precedence override layer.
func (f *File) Overrides() patch.Overrides {
	set := make(map[string]string, len(f.LaunchArgs))
	for k, v := range f.LaunchArgs {
		set[k] = v
	}
	return patch.Overrides{Set: set}
}

// PackageDirs resolves relative share directories against root.
func (f *File) PackageDirs(root string) map[string]string {
	out := make(map[string]string, len(f.Packages))
	for name, dir := range f.Packages {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		out[name] = dir
	}
	return out
}

func (f *File) Ros2Path() string {
	if f.Ros2 == "" {
		return DefaultRos2
	}
	return f.Ros2
}

func (f *File) DeviceWait() time.Duration {
	d, _ := parseDuration("device_timeout", f.DeviceTimeout)
	if d <= 0 {
		return DefaultDeviceTimeout
	}
	return d
}

func (f *File) SettleTime() time.Duration {
	d, _ := parseDuration("settle", f.Settle)
	return d
}

// UseWrapper reports whether services run under the exit-recording wrapper.
// Defaults to true.
func (f *File) UseWrapper() bool {
	if f.Wrap == nil {
		return true
	}
	return *f.Wrap
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", field)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must be >= 0", field)
	}
	return d, nil
}
