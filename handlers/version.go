package handlers

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

var (
	version     string
	versionOnce sync.Once
)

// ServerVersion reads the build version from version.txt, cached after the
// first read. Returns "dev" when no version file is present.
func ServerVersion() string {
	versionOnce.Do(func() {
		version = "dev"
		if data, err := os.ReadFile("version.txt"); err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				version = v
			}
		}
	})
	return version
}

// Version reports the server build version.
func Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": ServerVersion()})
}
