package media

import (
	"path/filepath"
	"strings"
)

// FileType is the closed set of content categories the pipeline understands.
type FileType string

const (
	TypeImage   FileType = "image"
	TypeVideo   FileType = "video"
	TypeAudio   FileType = "audio"
	TypePDF     FileType = "pdf"
	TypeDoc     FileType = "doc"
	TypeText    FileType = "text"
	TypeUnknown FileType = "unknown"
)

// extension sets, lowercase with leading dot
var extensions = map[FileType][]string{
	TypeImage: {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"},
	TypeVideo: {".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv"},
	TypeAudio: {".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac"},
	TypeDoc:   {".doc", ".docx"},
	TypePDF:   {".pdf"},
	TypeText:  {".txt"},
}

var byExtension = func() map[string]FileType {
	m := make(map[string]FileType)
	for t, exts := range extensions {
		for _, e := range exts {
			m[e] = t
		}
	}
	return m
}()

// AllTypes returns every supported (non-unknown) type in a stable order.
func AllTypes() []FileType {
	return []FileType{TypeImage, TypeVideo, TypeAudio, TypePDF, TypeDoc, TypeText}
}

// Classify maps a path to its FileType using only the lowercase extension.
// Unrecognized extensions yield TypeUnknown, which is not an error.
func Classify(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return TypeUnknown
}

// Extensions returns the extensions (without dot) accepted for t.
func Extensions(t FileType) []string {
	out := make([]string, 0, len(extensions[t]))
	for _, e := range extensions[t] {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	return out
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// ContentType returns the MIME type used when staging a file with extension ext.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

var extByMIME = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"video/mp4":          ".mp4",
	"video/quicktime":    ".mov",
	"audio/mpeg":         ".mp3",
	"audio/wav":          ".wav",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
}

// ExtensionForContentType maps a response Content-Type header to an extension.
// Parameters such as charset are ignored. Unknown types map to ".bin".
func ExtensionForContentType(header string) string {
	mt := strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
	if ext, ok := extByMIME[mt]; ok {
		return ext
	}
	return ".bin"
}
