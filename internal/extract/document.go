package extract

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Document is one uploaded file. The service decides whether it can read
// it; nothing here checks the format.
type Document struct {
	Name string
	Data []byte
}

// ContentType labels the upload part. The extension wins; otherwise the
// bytes are sniffed.
func (d Document) ContentType() string {
	switch strings.ToLower(filepath.Ext(d.Name)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return http.DetectContentType(d.Data)
	}
}

func (d Document) filename() string {
	name := filepath.Base(d.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "document"
	}
	return name
}
