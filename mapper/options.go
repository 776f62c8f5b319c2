package mapper

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Options are the runtime parameters of the surfel mapper. The map keys
// accepted by OptionsFromMap match the parameter names of the mapping node.
type Options struct {
	// DMax is the depth tolerance in meters for matching a scan pixel to an
	// existing surfel.
	DMax float64 `mapstructure:"dmax" yaml:"dmax"`
	// MinKinectDist and MaxKinectDist bound the reliable sensor depth range.
	MinKinectDist float64 `mapstructure:"min_kinect_dist" yaml:"min_kinect_dist"`
	MaxKinectDist float64 `mapstructure:"max_kinect_dist" yaml:"max_kinect_dist"`
	// OctreeResolution is the spatial index leaf size in meters.
	OctreeResolution float64 `mapstructure:"octree_resolution" yaml:"octree_resolution"`
	// PreviewResolution is the preview voxel size in meters.
	PreviewResolution float64 `mapstructure:"preview_resolution" yaml:"preview_resolution"`
	// PreviewColorSamplesInVoxel caps how many surfels are averaged per
	// preview voxel.
	PreviewColorSamplesInVoxel int `mapstructure:"preview_color_samples_in_voxel" yaml:"preview_color_samples_in_voxel"`
	// ConfidenceThreshold is the confidence count at which a surfel becomes
	// reliable.
	ConfidenceThreshold int `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	// MinScanZNormal rejects grazing-angle pixels whose camera-frame normal
	// has a smaller |z| component.
	MinScanZNormal float64 `mapstructure:"min_scan_znormal" yaml:"min_scan_znormal"`
	// UseFrustum enables the frustum visibility pre-pass.
	UseFrustum bool `mapstructure:"use_frustum" yaml:"use_frustum"`
	// SceneSize is the pre-allocated surfel store capacity.
	SceneSize int `mapstructure:"scene_size" yaml:"scene_size"`
	// Logging enables the per-frame structured log.
	Logging bool `mapstructure:"logging" yaml:"logging"`
	// UseUpdate enables surfel updates; when false every accepted pixel
	// inserts a new surfel.
	UseUpdate bool `mapstructure:"use_update" yaml:"use_update"`
}

// DefaultOptions returns the parameter defaults of the mapping node.
func DefaultOptions() Options {
	return Options{
		DMax:                       0.005,
		MinKinectDist:              0.8,
		MaxKinectDist:              4.0,
		OctreeResolution:           0.2,
		PreviewResolution:          0.2,
		PreviewColorSamplesInVoxel: 3,
		ConfidenceThreshold:        5,
		MinScanZNormal:             0.2,
		UseFrustum:                 true,
		SceneSize:                  3e7,
		Logging:                    true,
		UseUpdate:                  true,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.DMax <= 0 {
		return errors.Errorf("dmax must be positive, got %f", o.DMax)
	}
	if o.MinKinectDist < 0 || o.MaxKinectDist <= o.MinKinectDist {
		return errors.Errorf("invalid sensor depth range [%f, %f]", o.MinKinectDist, o.MaxKinectDist)
	}
	if o.OctreeResolution <= 0 {
		return errors.Errorf("octree_resolution must be positive, got %f", o.OctreeResolution)
	}
	if o.PreviewResolution <= 0 {
		return errors.Errorf("preview_resolution must be positive, got %f", o.PreviewResolution)
	}
	if o.PreviewColorSamplesInVoxel <= 0 {
		return errors.Errorf("preview_color_samples_in_voxel must be positive, got %d", o.PreviewColorSamplesInVoxel)
	}
	if o.MinScanZNormal < 0 || o.MinScanZNormal > 1 {
		return errors.Errorf("min_scan_znormal must be in [0, 1], got %f", o.MinScanZNormal)
	}
	if o.SceneSize <= 0 {
		return errors.Errorf("scene_size must be positive, got %d", o.SceneSize)
	}
	return nil
}

// OptionsFromMap overlays recognized keys from m onto the defaults.
// Unrecognized keys are ignored.
func OptionsFromMap(m map[string]interface{}) (Options, error) {
	o := DefaultOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &o,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Options{}, errors.Wrap(err, "cannot decode mapper options")
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
