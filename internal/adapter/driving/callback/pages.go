package callback

import (
	"html/template"
	"net/http"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<body>
<h1>{{.Message}}</h1>
{{if .ShowFolderForm}}
<p>Please select a destination folder by entering its ID.</p>
<form action="/select_folder" method="post">
<label for="folder_id">Folder ID:</label>
<input type="text" id="folder_id" name="folder_id"><br>
<input type="submit" value="Submit">
</form>
{{end}}
</body>
</html>
`))

type pageData struct {
	Message        string
	ShowFolderForm bool
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, data)
}

func renderSuccess(w http.ResponseWriter, message string) {
	renderPage(w, http.StatusOK, pageData{Message: message})
}

func renderFolderForm(w http.ResponseWriter) {
	renderPage(w, http.StatusOK, pageData{
		Message:        "Authorization successful!",
		ShowFolderForm: true,
	})
}

func renderError(w http.ResponseWriter, status int, message string) {
	renderPage(w, status, pageData{Message: message})
}
