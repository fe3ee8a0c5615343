package launch

const DefaultLidarPort = "/dev/ttyUSB0"

// LidarDriver describes where a lidar sub-plan lives and how to call it.
type LidarDriver struct {
	Package    string
	LaunchFile string
	// ParamsFile, when set, is a file under the bringup package's param
	// directory passed as params_file instead of port/frame_id.
	ParamsFile string
}

var defaultLidar = LidarDriver{Package: "hls_lfcd_lds_driver", LaunchFile: "hlds_laser.launch.py"}

var lidarDrivers = map[string]LidarDriver{
	"LDS-01":     defaultLidar,
	"LDS-02":     {Package: "ld08_driver", LaunchFile: "ld08.launch.py"},
	"YDLIDAR-G4": {Package: "ydlidar_ros2_driver", LaunchFile: "ydlidar_launch.py", ParamsFile: "ydlidar.yaml"},
}

// LookupLidar returns the driver for id. Unrecognized ids get the LDS-01
// driver and ok=false.
func LookupLidar(id string) (LidarDriver, bool) {
	d, ok := lidarDrivers[id]
	if !ok {
		return defaultLidar, false
	}
	return d, true
}

func KnownLidars() []string {
	return []string{"LDS-01", "LDS-02", "YDLIDAR-G4"}
}
