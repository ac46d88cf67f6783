// Package rookery provides a hierarchical resource store: a tree of
// directories and files addressed by slash-separated paths, exposed over a
// REST endpoint modelled on the GeoServer resource API.
//
// # Key Components
//
//   - Path: canonical, validated resource location (ResolvePath, ParsePath)
//   - Tree: read-only hierarchical view over a Driver
//   - Driver: pluggable physical storage (filesystem, memory, database, blob)
//   - MimeResolver: media type by extension, then by magic bytes
//   - Describer: builds format-independent ResourceMetadata snapshots
//   - Service: upload, copy, move and delete under a LockManager
//
// # Consistency
//
// Every mutation acquires its whole lock set at once, validates the tree,
// executes against the driver and then releases. A failed validation or
// execution leaves the tree unchanged. Readers hold a shared lock while they
// look a resource up and open it, so they never observe a half-applied
// upload or move.
//
// # Example Usage
//
//	store, err := filesystem.NewStore(root)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	service, err := rookery.NewService(store, rookery.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	created, err := service.Upload(ctx, rookery.MustParsePath("styles/point.sld"), body)
//	err = service.Move(ctx, rookery.MustParsePath("styles"), rookery.MustParsePath("archive/styles"))
//
// See the http package for the REST endpoint and the format package for the
// XML, JSON and HTML metadata encodings.
package rookery
