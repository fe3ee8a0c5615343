package cmds

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-go-golems/bringup/pkg/launch"
	"github.com/go-go-golems/bringup/pkg/serialport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type fileCheck struct {
	Directive string `json:"directive"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
}

type doctorReport struct {
	Model  string            `json:"model"`
	Lidar  string            `json:"lidar"`
	Ros2   string            `json:"ros2"`
	Ros2OK bool              `json:"ros2_ok"`
	Files  []fileCheck       `json:"files"`
	Serial serialport.Report `json:"serial"`
	OK     bool              `json:"ok"`
}

func newDoctorCmd() *cobra.Command {
	var probeBaud int

	cmd := &cobra.Command{
		Use:   "doctor [name:=value...]",
		Short: "Check that the files, devices and tools the launch plan needs are present",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildPlan(cmd, args)
			if err != nil {
				return err
			}
			services, err := in.services()
			if err != nil {
				return err
			}

			rep := doctorReport{
				Model: in.plan.Model,
				Lidar: in.plan.Lidar,
				Ros2:  in.cfg.Ros2Path(),
				Files: checkFiles(requiredFiles(in.plan)),
			}
			if _, err := exec.LookPath(rep.Ros2); err == nil {
				rep.Ros2OK = true
			}

			checker := &serialport.Checker{}
			if probeBaud > 0 {
				checker.Probe = serialport.ProbeMode(probeBaud)
			}
			rep.Serial, err = checker.Check(serviceDevices(services))
			if err != nil {
				// Listing can fail on hosts without serial support; device
				// presence is still checked below through Exists.
				log.Warn().Err(err).Msg("serial port enumeration failed")
				rep.Serial, _ = (&serialport.Checker{List: noPorts, Probe: checker.Probe}).Check(serviceDevices(services))
			}

			rep.OK = rep.Ros2OK && rep.Serial.OK()
			for _, f := range rep.Files {
				rep.OK = rep.OK && f.Exists
			}

			b, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal report")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if !rep.OK {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&probeBaud, "probe", 0, "Open each serial device at this baud rate to check access (0 disables)")
	launch.AddArgFlags(cmd.Flags())
	return cmd
}

func noPorts() ([]string, error) { return nil, nil }

// requiredFiles lists the launch files and parameter files referenced by the
// enabled directives of p.
func requiredFiles(p launch.Plan) []fileCheck {
	var out []fileCheck
	for _, d := range p.Enabled() {
		switch d.Kind {
		case launch.KindIncludeSubplan:
			out = append(out, fileCheck{Directive: d.Name, Path: d.Source})
			if pf, ok := d.Argument("params_file"); ok {
				out = append(out, fileCheck{Directive: d.Name, Path: pf})
			}
		case launch.KindLaunchProcess:
			for _, f := range d.Parameters {
				out = append(out, fileCheck{Directive: d.Name, Path: f})
			}
		}
	}
	return out
}

func checkFiles(files []fileCheck) []fileCheck {
	out := make([]fileCheck, 0, len(files))
	for _, f := range files {
		if fi, err := os.Stat(f.Path); err == nil && !fi.IsDir() {
			f.Exists = true
		}
		out = append(out, f)
	}
	return out
}

func serviceDevices(sp launch.ServicePlan) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range sp.Services {
		for _, d := range s.Devices {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
