package artifact

import (
	"dashboard-bootstrap/internal/manifest"
	"path/filepath"
)

type VerifyMode string

const (
	VerifyNone     VerifyMode = "none"
	VerifyNonEmpty VerifyMode = "nonempty"
	VerifyCSV      VerifyMode = "csv"
)

// Artifact is a file the application needs at runtime, fetched from
// bucket/key into Dest.
type Artifact struct {
	Name   string
	Bucket string
	Key    string
	Dest   string
	Verify VerifyMode

	// Required artifacts stop the bootstrap when they cannot be fetched.
	Required bool
}

// FromManifest resolves the manifest's artifact entries against the bucket
// and the application directory.
func FromManifest(m *manifest.Manifest, bucket, appDir string) []Artifact {
	artifacts := make([]Artifact, 0, len(m.Artifacts))
	for _, entry := range m.Artifacts {
		dest := entry.Dest
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(appDir, dest)
		}

		verify := VerifyMode(entry.Verify)
		if verify == "" {
			verify = VerifyNonEmpty
		}

		artifacts = append(artifacts, Artifact{
			Name:   entry.Name,
			Bucket: bucket,
			Key:    entry.Key,
			Dest:   dest,
			Verify: verify,

			Required: entry.OnFailure != manifest.OnFailureContinue,
		})
	}
	return artifacts
}
