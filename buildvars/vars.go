// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via `-ldflags -X github.com/toeirei/rsaclass/buildvars.Version=...`.
// It is empty for local builds.
var Version string

// GitCommit and BuildDate are set alongside Version by release builds.
var (
	GitCommit string
	BuildDate string
)

// VersionOrDefault returns Version if set, otherwise def.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
