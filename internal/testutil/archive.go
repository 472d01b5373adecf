package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

// ToolchainArchive returns a .tar.gz laid out like a published release
// whose top-level directory is top. usr/bin/swift runs a shell script that
// prints "swift".
func ToolchainArchive(t *testing.T, top string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	entries := []struct {
		name string
		body string
		mode int64
		link string
	}{
		{name: top + "/", mode: 0o755},
		{name: top + "/usr/", mode: 0o755},
		{name: top + "/usr/bin/", mode: 0o755},
		{name: top + "/usr/bin/swift-frontend", body: "#!/bin/sh\necho swift\n", mode: 0o755},
		{name: top + "/usr/bin/swift", link: "swift-frontend"},
		{name: top + "/usr/bin/swiftc", link: "swift-frontend"},
		{name: top + "/usr/lib/swift/linux/libswiftCore.so", body: "ELF", mode: 0o644},
	}

	for _, e := range entries {
		h := &tar.Header{Name: e.name, Mode: e.mode}
		switch {
		case e.link != "":
			h.Typeflag = tar.TypeSymlink
			h.Linkname = e.link
			h.Mode = 0o777
		case strings.HasSuffix(e.name, "/"):
			h.Typeflag = tar.TypeDir
		default:
			h.Typeflag = tar.TypeReg
			h.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(h); err != nil {
			t.Fatal(err)
		}
		if e.body != "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
