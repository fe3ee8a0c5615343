package launch

type Kind string

const (
	KindDeclareArgument Kind = "declare-argument"
	KindIncludeSubplan  Kind = "include-subplan"
	KindLaunchProcess   Kind = "launch-process"
)

// Binding is a single name:=value launch argument. Order is preserved.
type Binding struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Condition gates a directive on a boolean launch argument.
type Condition struct {
	Argument string `json:"argument" yaml:"argument"`
	Value    string `json:"value" yaml:"value"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
}

type Directive struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`

	// declare-argument
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// include-subplan
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Arguments []Binding `json:"arguments,omitempty" yaml:"arguments,omitempty"`

	// launch-process
	Package    string   `json:"package,omitempty" yaml:"package,omitempty"`
	Executable string   `json:"executable,omitempty" yaml:"executable,omitempty"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Args       []string `json:"args,omitempty" yaml:"args,omitempty"`
	Output     string   `json:"output,omitempty" yaml:"output,omitempty"`

	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

func (d Directive) Enabled() bool {
	return d.Condition == nil || d.Condition.Enabled
}

func (d Directive) Argument(name string) (string, bool) {
	for _, b := range d.Arguments {
		if b.Name == name {
			return b.Value, true
		}
	}
	return "", false
}

// Plan is the ordered result of a build. It is not modified after Build returns.
type Plan struct {
	Model         string            `json:"model" yaml:"model"`
	Lidar         string            `json:"lidar" yaml:"lidar"`
	LidarFallback bool              `json:"lidar_fallback,omitempty" yaml:"lidar_fallback,omitempty"`
	Args          map[string]string `json:"args" yaml:"args"`
	Directives    []Directive       `json:"directives" yaml:"directives"`
}

func (p Plan) Find(name string) (Directive, bool) {
	for _, d := range p.Directives {
		if d.Name == name && d.Kind != KindDeclareArgument {
			return d, true
		}
	}
	return Directive{}, false
}

func (p Plan) Declared() []Directive {
	var out []Directive
	for _, d := range p.Directives {
		if d.Kind == KindDeclareArgument {
			out = append(out, d)
		}
	}
	return out
}

// Enabled returns the include and process directives whose condition holds.
func (p Plan) Enabled() []Directive {
	var out []Directive
	for _, d := range p.Directives {
		if d.Kind == KindDeclareArgument || !d.Enabled() {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (p Plan) LidarInclude() Directive {
	d, _ := p.Find(NameLidar)
	return d
}
