package report

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

// DuplicateHTMLFilename is the self-contained HTML rendition.
const DuplicateHTMLFilename = "duplicates.html"

var htmlTmpl = template.Must(template.New("duplicates").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Duplicate analysis</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.7rem; text-align: left; }
th { background: #f0f0f0; }
.hash { font-family: monospace; }
.muted { color: #777; }
</style>
</head>
<body>
<h1>Duplicate analysis</h1>
<p class="muted">generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>

<table>
<tr><th>Total levels</th><td>{{.TotalLevels}}</td></tr>
<tr><th>Unique levels</th><td>{{.UniqueLevels}}</td></tr>
<tr><th>Duplicate groups</th><td>{{len .DuplicateGroups}}</td></tr>
<tr><th>Extra copies</th><td>{{.DuplicateCount}}</td></tr>
<tr><th>Cross-source groups</th><td>{{.Statistics.CrossSourceGroups}}</td></tr>
<tr><th>Within-source groups</th><td>{{.Statistics.WithinSourceGroups}}</td></tr>
<tr><th>Largest group</th><td>{{.Statistics.LargestGroupSize}}</td></tr>
</table>

<h2>Per source</h2>
<table>
<tr><th>Source</th><th>Total</th><th>Unique</th><th>Duplicates</th></tr>
{{range $src, $s := .Statistics.BySource}}
<tr><td>{{$src}}</td><td>{{$s.Total}}</td><td>{{$s.Unique}}</td><td>{{$s.Duplicates}}</td></tr>
{{end}}
</table>

<h2>Groups</h2>
{{range .DuplicateGroups}}
<h3 class="hash">{{.Hash}}</h3>
<p class="muted">{{len .Levels}} members, {{.FileSize}} bytes each</p>
<table>
<tr><th>ID</th><th>Source</th><th>Title</th><th>Author</th><th>Uploaded</th></tr>
{{range .Levels}}
<tr>
<td>{{.ID}}</td><td>{{.Source}}</td><td>{{.Title}}</td><td>{{.Author}}</td>
<td>{{if .UploadDate}}{{.UploadDate.Format "2006-01-02"}}{{else}}-{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// WriteDuplicateHTML renders the report as a single self-contained
// page under <outDir>/duplicate-reports/duplicates.html.
func WriteDuplicateHTML(outDir string, r *models.DuplicateAnalysisReport) (string, error) {
	var b strings.Builder
	if err := htmlTmpl.Execute(&b, r); err != nil {
		return "", fmt.Errorf("report: render duplicates html: %w", err)
	}

	path := filepath.Join(outDir, DuplicateReportsDir, DuplicateHTMLFilename)
	if err := fsutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("report: write duplicates html: %w", err)
	}
	return path, nil
}
