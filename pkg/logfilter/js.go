package logfilter

import (
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

var ErrFilterTimeout = errors.New("logfilter: js filter timeout")

// JS evaluates a JavaScript expression per line with `line` in scope, e.g.
//
//	line.level === "ERROR" && line.logger.startsWith("turtlebot3")
//
// An expression that evaluates to a function is called with the line.
type JS struct {
	vm      *goja.Runtime
	fn      goja.Callable
	timeout time.Duration
}

func CompileJS(expr string, timeout time.Duration) (*JS, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	prog, err := goja.Compile("filter", "(function(line) { return ("+expr+"); })", false)
	if err != nil {
		return nil, errors.Wrap(err, "compile filter")
	}
	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, errors.Wrap(err, "run filter")
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("filter did not compile to a function")
	}
	return &JS{vm: vm, fn: fn, timeout: timeout}, nil
}

type jsLine struct {
	Raw     string `json:"raw"`
	Level   string `json:"level"`
	Time    int64  `json:"time"`
	Logger  string `json:"logger"`
	Message string `json:"message"`
	Parsed  bool   `json:"parsed"`
}

func (j *JS) Keep(l Line) (bool, error) {
	arg := jsLine{Raw: l.Raw, Level: l.Level, Logger: l.Logger, Message: l.Message, Parsed: l.Parsed}
	if l.Parsed {
		arg.Time = l.Time.UnixMilli()
	}

	if j.timeout > 0 {
		timer := time.AfterFunc(j.timeout, func() { j.vm.Interrupt(ErrFilterTimeout) })
		defer timer.Stop()
	}
	defer j.vm.ClearInterrupt()

	v, err := j.fn(goja.Undefined(), j.vm.ToValue(arg))
	if err != nil {
		return false, wrapJSError(err)
	}
	if inner, ok := goja.AssertFunction(v); ok {
		v, err = inner(goja.Undefined(), j.vm.ToValue(arg))
		if err != nil {
			return false, wrapJSError(err)
		}
	}
	return v.ToBoolean(), nil
}

func wrapJSError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return ErrFilterTimeout
	}
	return errors.Wrap(err, "js filter")
}
