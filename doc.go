// Package spatialgo is an embeddable volumetric index toolkit.
//
// A dataset is built once from reference space definitions and positioned
// objects, then queried many times: by containing shape, by exact position,
// by identifier or by kind. Under the hood each space gets a space-filling-
// curve index, optionally at several resolutions so queries over large
// volumes can trade precision for speed.
//
// Datasets serialize to a single binary file and load back through a
// blobstore with zero-copy memory-mapped views.
//
//	sys := space.NewCoordinateSystem(space.Point{0, 0, 0}, xAxis, yAxis, zAxis)
//
//	core, err := spatialgo.NewBuilder("brain-atlas", "v1").
//	    AddSpace(space.New("std", sys)).
//	    AddFeature("soma-1", "std", space.Point{0.1, 0.2, 0.3}).
//	    Build(ctx)
//
//	items, err := core.GetByShape(ctx, spatialgo.QueryParams{},
//	    "std", space.HyperSphere(space.Point{0.1, 0.2, 0.3}, 0.05))
package spatialgo
