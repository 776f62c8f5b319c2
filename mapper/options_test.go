package mapper

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	test.That(t, o.Validate(), test.ShouldBeNil)
	test.That(t, o.DMax, test.ShouldEqual, 0.005)
	test.That(t, o.MinKinectDist, test.ShouldEqual, 0.8)
	test.That(t, o.MaxKinectDist, test.ShouldEqual, 4.0)
	test.That(t, o.OctreeResolution, test.ShouldEqual, 0.2)
	test.That(t, o.PreviewResolution, test.ShouldEqual, 0.2)
	test.That(t, o.PreviewColorSamplesInVoxel, test.ShouldEqual, 3)
	test.That(t, o.ConfidenceThreshold, test.ShouldEqual, 5)
	test.That(t, o.MinScanZNormal, test.ShouldEqual, 0.2)
	test.That(t, o.UseFrustum, test.ShouldBeTrue)
	test.That(t, o.SceneSize, test.ShouldEqual, 30000000)
	test.That(t, o.Logging, test.ShouldBeTrue)
	test.That(t, o.UseUpdate, test.ShouldBeTrue)
}

func TestOptionsFromMap(t *testing.T) {
	o, err := OptionsFromMap(map[string]interface{}{
		"dmax":       0.01,
		"scene_size": 100,
		"unknown":    "ignored",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.DMax, test.ShouldEqual, 0.01)
	test.That(t, o.SceneSize, test.ShouldEqual, 100)
	// untouched keys keep defaults
	test.That(t, o.ConfidenceThreshold, test.ShouldEqual, 5)

	_, err = OptionsFromMap(map[string]interface{}{"dmax": -1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero dmax", func(o *Options) { o.DMax = 0 }},
		{"inverted depth range", func(o *Options) { o.MinKinectDist = 5; o.MaxKinectDist = 1 }},
		{"zero octree resolution", func(o *Options) { o.OctreeResolution = 0 }},
		{"zero preview resolution", func(o *Options) { o.PreviewResolution = 0 }},
		{"zero preview samples", func(o *Options) { o.PreviewColorSamplesInVoxel = 0 }},
		{"znormal above one", func(o *Options) { o.MinScanZNormal = 1.5 }},
		{"zero scene size", func(o *Options) { o.SceneSize = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := DefaultOptions()
			tc.mutate(&o)
			test.That(t, o.Validate(), test.ShouldNotBeNil)
		})
	}
}
