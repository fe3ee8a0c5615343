package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const (
	StateDirName  = ".bringup"
	StateFilename = "state.json"
	LogsDirName   = "logs"
)

type State struct {
	Root      string            `json:"root"`
	CreatedAt time.Time         `json:"created_at"`
	Model     string            `json:"model,omitempty"`
	Lidar     string            `json:"lidar,omitempty"`
	Args      map[string]string `json:"args,omitempty"`
	Services  []ServiceRecord   `json:"services"`
}

type ServiceRecord struct {
	Name      string            `json:"name"`
	PID       int               `json:"pid"`
	Command   []string          `json:"command"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env,omitempty"`
	Devices   []string          `json:"devices,omitempty"`
	StdoutLog string            `json:"stdout_log"`
	StderrLog string            `json:"stderr_log"`
	ExitInfo  string            `json:"exit_info,omitempty"`
	StartedAt time.Time         `json:"started_at,omitempty"`
}

func (s *State) Service(name string) (ServiceRecord, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceRecord{}, false
}

func StatePath(root string) string {
	return filepath.Join(root, StateDirName, StateFilename)
}

func LogsDir(root string) string {
	return filepath.Join(root, StateDirName, LogsDirName)
}

func Exists(root string) bool {
	_, err := os.Stat(StatePath(root))
	return err == nil
}

func Load(root string) (*State, error) {
	b, err := os.ReadFile(StatePath(root))
	if err != nil {
		return nil, errors.Wrap(err, "read state")
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "parse state json")
	}
	return &s, nil
}

func Save(root string, s *State) error {
	if s == nil {
		return errors.New("nil state")
	}
	if err := os.MkdirAll(filepath.Dir(StatePath(root)), 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	// Write-then-rename so watchers never read a half-written file.
	tmp := StatePath(root) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	if err := os.Rename(tmp, StatePath(root)); err != nil {
		return errors.Wrap(err, "rename state")
	}
	return nil
}

func Remove(root string) error {
	if err := os.Remove(StatePath(root)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove state")
	}
	return nil
}

func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return stderrors.Is(err, syscall.EPERM)
}

func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// pid (comm) state ...
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	fields := bytes.Fields(bytes.TrimSpace(b[i+1:]))
	if len(fields) < 1 || len(fields[0]) < 1 {
		return false
	}
	return fields[0][0] == 'Z'
}
