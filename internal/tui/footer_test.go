// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import "testing"

func TestAlignFooter(t *testing.T) {
	tests := []struct {
		name, left, right string
		width             int
		want              string
	}{
		{"fits", "ok", "158", 10, "ok     158"},
		{"too narrow", "status", "right", 4, "status right"},
		{"cyrillic counts cells", "Готово", "x", 8, "Готово x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlignFooter(tt.left, tt.right, tt.width); got != tt.want {
				t.Fatalf("AlignFooter(%q, %q, %d) = %q, want %q", tt.left, tt.right, tt.width, got, tt.want)
			}
		})
	}
}
