// Package serialport checks that the serial devices a launch plan needs are
// present on this machine.
package serialport

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Lister returns the serial ports known to the OS.
type Lister func() ([]string, error)

var SystemLister Lister = serial.GetPortsList

type DeviceStatus struct {
	Path       string `json:"path"`
	Resolved   string `json:"resolved,omitempty"`
	Exists     bool   `json:"exists"`
	Listed     bool   `json:"listed"`
	Probed     bool   `json:"probed,omitempty"`
	ProbeError string `json:"probe_error,omitempty"`
}

func (d DeviceStatus) OK() bool {
	return d.Exists && (!d.Probed || d.ProbeError == "")
}

type Report struct {
	Ports   []string       `json:"ports"`
	Devices []DeviceStatus `json:"devices"`
}

func (r Report) OK() bool {
	for _, d := range r.Devices {
		if !d.OK() {
			return false
		}
	}
	return true
}

type Checker struct {
	List Lister
	// Probe opens each existing device briefly with these settings.
	Probe *serial.Mode
}

func (c *Checker) Check(paths []string) (Report, error) {
	list := c.List
	if list == nil {
		list = SystemLister
	}
	ports, err := list()
	if err != nil {
		return Report{}, errors.Wrap(err, "list serial ports")
	}
	if ports == nil {
		ports = []string{}
	}
	listed := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		listed[p] = struct{}{}
		if r, err := filepath.EvalSymlinks(p); err == nil {
			listed[r] = struct{}{}
		}
	}

	rep := Report{Ports: ports, Devices: make([]DeviceStatus, 0, len(paths))}
	for _, p := range paths {
		st := DeviceStatus{Path: p}
		if _, err := os.Stat(p); err == nil {
			st.Exists = true
		}
		if r, err := filepath.EvalSymlinks(p); err == nil && r != p {
			st.Resolved = r
		}
		_, a := listed[p]
		_, b := listed[st.Resolved]
		st.Listed = a || (st.Resolved != "" && b)

		if st.Exists && c.Probe != nil {
			st.Probed = true
			if err := probe(p, c.Probe); err != nil {
				st.ProbeError = err.Error()
			}
		}
		rep.Devices = append(rep.Devices, st)
	}
	return rep, nil
}

func probe(path string, mode *serial.Mode) error {
	port, err := serial.Open(path, mode)
	if err != nil {
		return err
	}
	return port.Close()
}

// ProbeMode is 8N1 at the given baud rate.
func ProbeMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
