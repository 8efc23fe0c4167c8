package fsutil

import (
	"bytes"
	"fmt"
)

// ManagedMarkerPrefix is the prefix for all skillkit ownership markers.
const ManagedMarkerPrefix = "<!-- skillkit:managed"

// ManagedMarker returns the ownership marker stamped into projected files.
func ManagedMarker(name, version string) string {
	return fmt.Sprintf("%s skill=%s version=%s -->", ManagedMarkerPrefix, name, version)
}

// IsManagedFile checks if data contains a skillkit managed marker.
func IsManagedFile(data []byte) bool {
	return bytes.Contains(data, []byte(ManagedMarkerPrefix))
}
