package zoho

import (
	"mime"
	"net/http"
	"strings"
)

// extensionByContentType is the fixed MIME-to-extension table used when the
// server supplies no content-disposition filename. Unmapped types fall back
// to a generic binary extension.
var extensionByContentType = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"video/mp4":              ".mp4",
	"video/quicktime":        ".mov",
	"audio/mpeg":             ".mp3",
	"image/png":              ".png",
	"image/jpeg":             ".jpg",
	"application/x-download": ".xlsx",
	"text/csv":               ".csv",
	"application/xml":        ".xml",
}

// resolveFilename picks the local filename for a downloaded attachment.
// The server-supplied content-disposition filename wins; otherwise an
// extension derived from the content type is applied to a generated name,
// unless the suggested name already carries that extension.
func resolveFilename(header http.Header, attachmentID, suggestedName string) string {
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}

	contentType := header.Get("Content-Type")
	if ct, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = ct
	}
	contentType = strings.ToLower(contentType)

	ext, ok := extensionByContentType[contentType]
	if !ok {
		ext = ".bin"
	}

	if suggestedName != "" && strings.HasSuffix(strings.ToLower(suggestedName), ext) {
		return suggestedName
	}
	return "attachment_" + attachmentID + ext
}
