//go:build !linux

package watcher

// DetectFilesystemType is only implemented on Linux; elsewhere fsnotify is
// tried first and polling remains the fallback.
func DetectFilesystemType(path string) FilesystemType {
	return FSTypeUnknown
}
