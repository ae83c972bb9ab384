// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every message ID passed to i18n.T exists in the
// English locale and that every other locale carries the same IDs.
//
// Usage:
//
//	go run ./tools/i18n-linter [root]
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
)

var usedKeyRe = regexp.MustCompile(`i18n\.T\("([^"]+)"`)

// Location is where a message ID is used.
type Location struct {
	Path string
	Line int
}

// Report is the outcome of one lint run.
type Report struct {
	// Undefined lists IDs used in code but absent from the primary locale.
	Undefined map[string][]Location
	// Missing maps a secondary locale file to the primary IDs it lacks.
	Missing map[string][]string
	// Orphaned lists primary IDs never used in code.
	Orphaned []string
}

// Failed reports whether the run found errors. Orphans only warn.
func (r Report) Failed() bool {
	return len(r.Undefined) > 0 || len(r.Missing) > 0
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	rep, err := lint(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(2)
	}
	printReport(rep)
	if rep.Failed() {
		os.Exit(1)
	}
}

func lint(root string) (Report, error) {
	rep := Report{Undefined: map[string][]Location{}, Missing: map[string][]string{}}

	used, err := findUsedKeys(root)
	if err != nil {
		return rep, fmt.Errorf("scan sources: %w", err)
	}
	dir := filepath.Join(root, localesDir)
	primary, err := loadKeysFromLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return rep, fmt.Errorf("load primary locale: %w", err)
	}

	for id, locs := range used {
		if _, ok := primary[id]; !ok {
			rep.Undefined[id] = locs
		}
	}
	for id := range primary {
		if _, ok := used[id]; !ok {
			rep.Orphaned = append(rep.Orphaned, id)
		}
	}
	sort.Strings(rep.Orphaned)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return rep, err
	}
	for _, f := range files {
		if filepath.Base(f) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return rep, fmt.Errorf("load %s: %w", f, err)
		}
		var missing []string
		for id := range primary {
			if _, ok := keys[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			rep.Missing[filepath.Base(f)] = missing
		}
	}
	return rep, nil
}

func printReport(rep Report) {
	ids := make([]string, 0, len(rep.Undefined))
	for id := range rep.Undefined {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		loc := rep.Undefined[id][0]
		fmt.Printf("undefined: %s (%s:%d)\n", id, loc.Path, loc.Line)
	}

	files := make([]string, 0, len(rep.Missing))
	for f := range rep.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, id := range rep.Missing[f] {
			fmt.Printf("missing in %s: %s\n", f, id)
		}
	}
	for _, id := range rep.Orphaned {
		fmt.Printf("orphaned: %s\n", id)
	}
	if !rep.Failed() {
		fmt.Println("all locales consistent")
	}
}

// findUsedKeys collects the literal IDs passed to i18n.T in non-test Go
// files below root, skipping the tools tree.
func findUsedKeys(root string) (map[string][]Location, error) {
	keys := map[string][]Location{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || name == "_examples" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(content), "\n") {
			for _, m := range usedKeyRe.FindAllStringSubmatch(line, -1) {
				keys[m[1]] = append(keys[m[1]], Location{Path: path, Line: i + 1})
			}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale returns the message IDs of a locale file. Nested maps
// are flattened with dots, so flat and nested layouts compare equal.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	flatten("", data, keys)
	return keys, nil
}

func flatten(prefix string, node any, keys map[string]struct{}) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
		return
	}
	for k, v := range m {
		if prefix != "" {
			k = prefix + "." + k
		}
		flatten(k, v, keys)
	}
}
