package http

import (
	"html/template"
	"log/slog"
	"net/http"
)

var errorPage = template.Must(template.New("error").Parse(`<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{.Code}} {{.Status}}</title></head>
<body>
<center><h1>{{.Code}} {{.Status}}</h1></center>
<p>{{.Message}}</p>
<hr/><center>rookery</center>
</body>
</html>
`))

// writeErrorPage answers an HTML-format request with a page instead of a
// JSON body, so a browser browsing the listing gets something readable.
func writeErrorPage(w http.ResponseWriter, err error) {
	code, _, message := classify(err)
	logRequestError(code, err)

	if code == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", allowedMethods)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)

	data := struct {
		Code    int
		Status  string
		Message string
	}{code, http.StatusText(code), message}

	if execErr := errorPage.Execute(w, data); execErr != nil {
		slog.Error("failed to render error page", "error", execErr)
	}
}
