// Command surfel-mapper runs the fusion pipeline over a synthetic keyframe
// stream and writes the resulting preview and map clouds as PCD files. It is
// a smoke-test harness for the mapping core; a transport front end would
// feed real keyframes through the same calls.
package main

import (
	"flag"
	"math"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/vbillys/robrex-mapping/camera"
	"github.com/vbillys/robrex-mapping/mapper"
	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/posepath"
	"github.com/vbillys/robrex-mapping/spatialmath"
)

type fileConfig struct {
	Mapper map[string]interface{} `yaml:"mapper"`
	Camera map[string]interface{} `yaml:"camera"`
}

func defaultIntrinsics() *camera.PinholeCameraIntrinsics {
	return &camera.PinholeCameraIntrinsics{
		Width:  640,
		Height: 480,
		Fx:     525,
		Fy:     525,
		Ppx:    319.5,
		Ppy:    239.5,
	}
}

func loadConfig(path string) (mapper.Options, *camera.PinholeCameraIntrinsics, error) {
	opts := mapper.DefaultOptions()
	intrinsics := defaultIntrinsics()
	if path == "" {
		return opts, intrinsics, nil
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return opts, nil, err
	}
	if fc.Mapper != nil {
		if opts, err = mapper.OptionsFromMap(fc.Mapper); err != nil {
			return opts, nil, err
		}
	}
	if fc.Camera != nil {
		if err := mapstructure.Decode(fc.Camera, intrinsics); err != nil {
			return opts, nil, err
		}
	}
	return opts, intrinsics, nil
}

// syntheticKeyframe renders a colored wall two meters ahead with a gentle
// depth ripple, in the sensor frame.
func syntheticKeyframe(intrinsics *camera.PinholeCameraIntrinsics) (*pointcloud.Organized, error) {
	oc, err := pointcloud.NewOrganized(intrinsics.Width, intrinsics.Height)
	if err != nil {
		return nil, err
	}
	for v := 0; v < intrinsics.Height; v++ {
		for u := 0; u < intrinsics.Width; u++ {
			depth := 2.0 + 0.05*math.Sin(float64(u)/40)*math.Cos(float64(v)/40)
			pos := intrinsics.PixelToPoint(float64(u), float64(v), depth)
			oc.Set(u, v, pointcloud.PointXYZRGB{
				Position: pos,
				R:        uint8(u * 255 / intrinsics.Width),
				G:        uint8(v * 255 / intrinsics.Height),
				B:        128,
			})
		}
	}
	return oc, nil
}

func realMain(logger golog.Logger) error {
	var (
		configPath   = flag.String("config", "", "YAML config with mapper and camera sections")
		frames       = flag.Int("frames", 10, "number of synthetic keyframes to fuse")
		previewOut   = flag.String("preview-out", "preview.pcd", "preview cloud output path")
		mapOut       = flag.String("map-out", "map.pcd", "full map cloud output path")
		frameLogPath = flag.String("frame-log", "", "append per-frame JSON records to this file")
	)
	flag.Parse()

	opts, intrinsics, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	sm, err := mapper.NewSurfelMapper(opts, logger)
	if err != nil {
		return err
	}
	if err := sm.SetCameraInfo(intrinsics); err != nil {
		return err
	}
	if *frameLogPath != "" {
		//nolint:gosec
		f, err := os.OpenFile(*frameLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logger.Warnw("cannot close frame log", "error", cerr)
			}
		}()
		sm.FrameLog().SetWriter(f)
	}

	// stamped poses sweeping sideways; keyframes arrive through the same
	// queue-and-align flow a transport front end would use
	base := time.Now()
	poses := make([]posepath.StampedPose, *frames)
	for i := range poses {
		poses[i] = posepath.StampedPose{
			Stamp: base.Add(time.Duration(i) * 100 * time.Millisecond),
			Pose:  spatialmath.NewPose(r3.Vector{X: 0.02 * float64(i)}, spatialmath.NewZeroPose().Orientation),
		}
	}
	path := posepath.NewPath(poses)

	queue := posepath.NewQueue(logger)
	for i := 0; i < *frames; i++ {
		cloud, err := syntheticKeyframe(intrinsics)
		if err != nil {
			return err
		}
		queue.Push(posepath.Keyframe{Stamp: poses[i].Stamp, Cloud: cloud})
	}

	start := time.Now()
	err = queue.Drain(path, func(kf posepath.Keyframe, pose spatialmath.SensorPose) error {
		return sm.IngestKeyframe(kf.Cloud, pose)
	})
	if err != nil {
		return err
	}
	logger.Infow("fusion finished",
		"frames", *frames,
		"surfels", sm.PointCount(),
		"elapsed", time.Since(start))

	preview := sm.PreviewCloud()
	if err := pointcloud.WritePCDFile(preview, *previewOut); err != nil {
		return err
	}
	logger.Infow("preview written", "path", *previewOut, "points", len(preview))

	mapCloud := sm.ExtractMapCloud()
	if err := pointcloud.WritePCDFile(mapCloud, *mapOut); err != nil {
		return err
	}
	logger.Infow("map written", "path", *mapOut, "points", len(mapCloud))
	return nil
}

func main() {
	logger := golog.NewDevelopmentLogger("surfel-mapper")
	if err := realMain(logger); err != nil {
		logger.Fatal(err)
	}
}
