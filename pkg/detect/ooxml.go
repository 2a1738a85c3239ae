package detect

import (
	"bytes"
	"strings"

	"github.com/klauspost/compress/zip"
)

const ooxmlContentTypes = "[Content_Types].xml"

// ooxmlParts are the document roots of Word, Excel, PowerPoint and Visio
// packages. The content-types manifest alone is not enough: other Open
// Packaging formats such as .nupkg carry it too and are merged as archives.
var ooxmlParts = []string{"word/", "xl/", "ppt/", "visio/"}

// isOOXML reports whether a zip buffer is an Office Open XML document. Plain
// zips and jars lack the content-types manifest or the document parts and
// stay archives. A zip whose directory cannot be read is not OOXML.
func isOOXML(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}

	var manifest, part bool
	for _, f := range zr.File {
		if f.Name == ooxmlContentTypes {
			manifest = true
		}
		for _, prefix := range ooxmlParts {
			if strings.HasPrefix(f.Name, prefix) {
				part = true
			}
		}
		if manifest && part {
			return true
		}
	}
	return false
}
