package photostore

import "net/http"

// AllowedMIMETypes is the set of image types hoardings may carry.
var AllowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// DetectImageType sniffs data and reports its MIME type if it is one of
// AllowedMIMETypes. http.DetectContentType has no WebP signature, so the
// RIFF/WEBP header is checked first.
func DetectImageType(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mimeType := http.DetectContentType(data)
	if AllowedMIMETypes[mimeType] {
		return mimeType, true
	}
	return "", false
}

func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}
