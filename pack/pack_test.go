package pack

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func Test_Archive(t *testing.T) {
	convey.Convey("the archive keeps sources and drops junk directories", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "function.yml"), "name: demo\nruntime: python3.12\n")
		writeFile(t, filepath.Join(dir, "main.py"), "print('hi')\n")
		writeFile(t, filepath.Join(dir, "lib", "util.py"), "x = 1\n")
		writeFile(t, filepath.Join(dir, ".git", "config"), "[core]\n")
		writeFile(t, filepath.Join(dir, "node_modules", "left-pad", "index.js"), "js\n")

		archive, err := Archive(dir)
		convey.So(err, convey.ShouldBeNil)

		reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
		convey.So(err, convey.ShouldBeNil)
		names := make(map[string]bool)
		for _, file := range reader.File {
			names[file.Name] = true
		}
		convey.So(names["function.yml"], convey.ShouldBeTrue)
		convey.So(names["main.py"], convey.ShouldBeTrue)
		convey.So(names["lib/util.py"], convey.ShouldBeTrue)
		convey.So(names[".git/config"], convey.ShouldBeFalse)
		convey.So(names["node_modules/left-pad/index.js"], convey.ShouldBeFalse)
	})
}

func Test_LoadManifest(t *testing.T) {
	convey.Convey("a valid manifest loads with a runtime default entry", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "function.yml"), "name: demo\nruntime: python3.12\nport: 8080\n")
		manifest, err := LoadManifest(dir)
		convey.So(err, convey.ShouldBeNil)
		convey.So(manifest.Name, convey.ShouldEqual, "demo")
		convey.So(manifest.Entry, convey.ShouldEqual, "main.py")
		convey.So(manifest.Port, convey.ShouldEqual, 8080)
	})
	convey.Convey("a manifest without a runtime is rejected", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "function.yml"), "name: demo\n")
		_, err := LoadManifest(dir)
		convey.So(err, convey.ShouldNotBeNil)
	})
	convey.Convey("a missing manifest is an error", t, func() {
		_, err := LoadManifest(t.TempDir())
		convey.So(err, convey.ShouldNotBeNil)
	})
}
