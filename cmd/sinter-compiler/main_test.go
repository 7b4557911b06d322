package main

import (
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestShouldRebuild(t *testing.T) {
	target := filepath.Clean("src/app.sn")
	cases := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write to target", fsnotify.Event{Name: "src/app.sn", Op: fsnotify.Write}, true},
		{"editor save via rename", fsnotify.Event{Name: "src/app.sn", Op: fsnotify.Rename}, true},
		{"editor save via create", fsnotify.Event{Name: "src/app.sn", Op: fsnotify.Create}, true},
		{"unclean path still matches", fsnotify.Event{Name: "src/./app.sn", Op: fsnotify.Write}, true},
		{"chmod ignored", fsnotify.Event{Name: "src/app.sn", Op: fsnotify.Chmod}, false},
		{"remove ignored", fsnotify.Event{Name: "src/app.sn", Op: fsnotify.Remove}, false},
		{"sibling file ignored", fsnotify.Event{Name: "src/other.sn", Op: fsnotify.Write}, false},
	}
	for _, tc := range cases {
		if got := shouldRebuild(tc.ev, target); got != tc.want {
			t.Errorf("%s: shouldRebuild = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	cases := map[string]string{
		"fib.sn":           "fib.ir",
		"examples/app.sn":  "examples/app.ir",
		"noext":            "noext.ir",
		"dir.v2/module.sn": "dir.v2/module.ir",
	}
	for input, want := range cases {
		if got := defaultOutput(input); got != want {
			t.Errorf("defaultOutput(%q) = %q, want %q", input, got, want)
		}
	}
}
