// Package dashboard renders the Grafana dashboard JSON for the GreptimeDB
// history tables (route_points, alert_events).
package dashboard

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
)

const templateFile = "grafana-dashboard.json.tmpl"

// rootDir resolves the repository root from this source file, so the
// template is found regardless of the working directory.
func rootDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(filepath.Dir(file)))
}

// Render writes the rendered dashboard JSON to outDir. The datasource UID
// comes from GREPTIMEDB_DATASOURCE_UID, which must be set.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", eris.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	t, err := template.New(templateFile).Funcs(funcMap).ParseFiles(filepath.Join(rootDir(), templateFile))
	if err != nil {
		return eris.Wrap(err, "dashboard: parse template")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return eris.Wrap(err, "dashboard: create output dir")
	}

	outPath := filepath.Join(outDir, strings.TrimSuffix(templateFile, ".tmpl"))
	f, err := os.Create(outPath)
	if err != nil {
		return eris.Wrap(err, "dashboard: create output file")
	}
	if err := t.Execute(f, nil); err != nil {
		f.Close()
		return eris.Wrap(err, "dashboard: render")
	}
	return f.Close()
}
