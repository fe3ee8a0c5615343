package launch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Save writes p as JSON so later commands can show what was launched.
func (p Plan) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir plan dir")
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write plan")
	}
	return nil
}

func LoadPlan(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read plan")
	}
	var p Plan
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, errors.Wrap(err, "parse plan json")
	}
	return &p, nil
}
