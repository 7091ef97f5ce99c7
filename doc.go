/*
Package weccapgo implements the geometric core of a real-time multi-view
optical motion-capture server.

- weccapgo is a golang port of paddyobrien/weccap's geometric core
- This project is in **no** way associated with the original

Cameras observe retroreflective markers; weccapgo turns their 2D blob
centroids into triangulated 3D points, resolves which blob in each camera
corresponds to which 3D marker, locates rigid objects from known marker
separations, and tracks them across frames with a Kalman filter.

# Basic Usage

	pipeline, err := weccapgo.NewPipeline(&weccapgo.PipelineConfig{
		Cameras:       cameras, // []weccapgo.CameraSetup
		LocatorConfig: &weccapgo.ObjectLocatorConfig{Distance: 0.131, Tolerance: 0.025},
	})
	if err != nil {
		log.Fatal(err)
	}

	go pipeline.Drive(ctx, frames)

	for ev := range pipeline.Outbound {
		switch e := ev.(type) {
		case weccapgo.ObjectPointsEvent:
			fmt.Printf("tracked: %v\n", e.FilteredObjects)
		}
	}

# Core Types

CameraIntrinsics and CameraPose describe one calibrated camera.
ImagePoint is a 2D blob centroid, possibly missing for a given camera.
ObjectPoint is a triangulated 3D point with its reprojection error.
DetectedObject and TrackedObject are rigid bodies before and after
Kalman smoothing.

# Pipeline Stages

Blob extraction (blobs.go), epipolar correspondence (correspondence.go),
triangulation (triangulate.go), pose bootstrap (pose_bootstrap.go), bundle
adjustment (bundle_adjustment.go), world alignment (world_alignment.go),
object location (locator.go), and tracking (kalman_tracker.go) are each
independently usable; Pipeline (pipeline.go) wires them into the full
capture/process/emit loop described by the state machine in §4.11.
*/
package weccapgo
