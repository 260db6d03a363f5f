package imagepkg

import (
	"os"
	"strings"

	"github.com/youruser/idcards/internal/util"
)

// ReadSource returns the bytes behind a local path or an http(s) URL.
func ReadSource(src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return util.GetBytes(src)
	}
	return os.ReadFile(src)
}
