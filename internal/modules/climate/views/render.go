package views

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"text/template"
)

//go:embed templates/*.txt
var viewsFS embed.FS

var indexTmpl *template.Template

// loadTemplatesFromFS parses the route index template from fsys/dir.
// Tests call it directly to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	indexTmpl, err = template.ParseFS(sub, "*.txt")
	return err
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type Route struct {
	Path        string
	Description string
}

type IndexData struct {
	Routes []Route
}

// DefaultIndex lists the query routes mounted under prefix.
func DefaultIndex(prefix string) IndexData {
	return IndexData{Routes: []Route{
		{Path: prefix + "/precipitation", Description: "precipitation by date, last 12 months"},
		{Path: prefix + "/stations", Description: "station codes"},
		{Path: prefix + "/tobs", Description: "temperature observations of the most active station, last 12 months"},
		{Path: prefix + "/<start>", Description: "TMIN, TAVG, TMAX from start (YYYY-MM-DD)"},
		{Path: prefix + "/<start>/<end>", Description: "TMIN, TAVG, TMAX from start to end inclusive"},
	}}
}

func RenderIndex(w io.Writer, data IndexData) error {
	if indexTmpl == nil {
		return errors.New("index template not loaded: call views.LoadTemplates during startup")
	}
	return indexTmpl.ExecuteTemplate(w, "index.txt", data)
}
