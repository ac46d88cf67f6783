// Package http exposes a rookery store over HTTP.
//
// Every resource lives under a base path (default /resource). The verb and
// the case-insensitive operation query parameter select what happens:
//
//	GET    /resource/{path}                       file content, or the listing of a directory
//	GET    /resource/{path}?operation=metadata    metadata document
//	PUT    /resource/{path}                       upload the body as the file content
//	PUT    /resource/{path}?operation=copy        copy the file named in the body
//	PUT    /resource/{path}?operation=move        move the file or directory named in the body
//	DELETE /resource/{path}                       delete, recursively for directories
//
// Metadata documents are rendered as XML, JSON or HTML. The format query
// parameter wins over the Accept header; XML is the default.
//
// # Status Codes
//
//   - 400: malformed path, unknown operation or format, empty copy/move body
//   - 404: the path or the copy/move source does not exist
//   - 405: unsupported verb, or an operation that does not apply to the
//     resource type (uploading onto a directory, copying a directory)
//   - 413: upload larger than HandlerConfig.MaxUploadSize
//
// 405 responses carry an Allow header.
//
// # Headers
//
// Resource responses carry Last-Modified, Resource-Parent (absolute link to
// the parent collection) and Resource-Type ("resource" or "directory").
// Links are built from HandlerConfig.PublicURL or, when unset, from the
// request scheme (honouring X-Forwarded-Proto) and host.
//
// # Usage
//
//	metrics := http.NewMetrics()
//	svc, _ := rookery.NewService(driver, rookery.ServiceConfig{Observer: metrics})
//	handler := http.NewHandler(&http.HandlerConfig{Metrics: metrics}, svc)
//	http.ListenAndServe(":5708", handler.Router())
package http
