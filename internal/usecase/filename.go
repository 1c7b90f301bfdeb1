package usecase

import "strings"

// UploadFilename derives the name an upload is sent under: the capture's
// base name with a trailing ".<word>" replaced by .jpg, or .jpg appended when
// there is none. A dotfile such as ".hidden" becomes ".jpg".
func UploadFilename(name string) string {
	base := name
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		base = name[i+1:]
	}
	if base == "" {
		return "upload.jpg"
	}
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 && isWord(base[dot+1:]) {
		base = base[:dot]
	}
	return base + ".jpg"
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
