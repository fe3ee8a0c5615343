package launch

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ServiceSpec is one supervised process derived from an enabled directive.
type ServiceSpec struct {
	Name    string            `json:"name" yaml:"name"`
	Cwd     string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Command []string          `json:"command" yaml:"command"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Devices must exist before the service is started.
	Devices  []string `json:"devices,omitempty" yaml:"devices,omitempty"`
	SettleMs int64    `json:"settle_ms,omitempty" yaml:"settle_ms,omitempty"`
}

type ServicePlan struct {
	Services []ServiceSpec `json:"services" yaml:"services"`
}

type LowerOptions struct {
	Ros2   string
	Settle time.Duration
}

// Services turns the enabled include and process directives of p into
// commands for the ros2 CLI, in plan order.
func Services(p Plan, opts LowerOptions) (ServicePlan, error) {
	ros2 := opts.Ros2
	if ros2 == "" {
		ros2 = "ros2"
	}

	out := ServicePlan{Services: []ServiceSpec{}}
	for _, d := range p.Enabled() {
		svc := ServiceSpec{
			Name:     d.Name,
			Env:      map[string]string{EnvModel: p.Model, EnvLidar: p.Lidar},
			SettleMs: opts.Settle.Milliseconds(),
		}
		switch d.Kind {
		case KindIncludeSubplan:
			if d.Source == "" {
				return ServicePlan{}, errors.Errorf("include %q missing source", d.Name)
			}
			svc.Command = append([]string{ros2, "launch", d.Source}, launchArgs(d.Arguments)...)
			if port, ok := d.Argument("port"); ok && isDevice(port) {
				svc.Devices = []string{port}
			}
		case KindLaunchProcess:
			if d.Package == "" || d.Executable == "" {
				return ServicePlan{}, errors.Errorf("process %q missing package or executable", d.Name)
			}
			svc.Command = []string{ros2, "run", d.Package, d.Executable}
			svc.Command = append(svc.Command, d.Args...)
			if len(d.Parameters) > 0 {
				svc.Command = append(svc.Command, "--ros-args")
				for _, f := range d.Parameters {
					svc.Command = append(svc.Command, "--params-file", f)
				}
			}
			if d.Name == NameHardware && isDevice(p.Args[ArgUSBPort]) {
				svc.Devices = []string{p.Args[ArgUSBPort]}
			}
		default:
			return ServicePlan{}, errors.Errorf("directive %q: unsupported kind %q", d.Name, d.Kind)
		}
		out.Services = append(out.Services, svc)
	}
	return out, nil
}

func launchArgs(bindings []Binding) []string {
	sorted := append([]Binding{}, bindings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	out := make([]string, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, b.Name+":="+b.Value)
	}
	return out
}

func isDevice(path string) bool {
	return filepath.IsAbs(path) && strings.HasPrefix(path, "/dev/")
}
