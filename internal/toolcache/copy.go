package toolcache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyInto copies the tree at src to dest via dest+".partial" and a final
// rename. Regular files, directories and symlinks are preserved.
func copyInto(src, dest string) error {
	stage := dest + ".partial"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(stage, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("unsupported file type %s: %s", info.Mode().Type(), rel)
		}
	})
	if err != nil {
		return fmt.Errorf("copy into cache: %w", err)
	}

	if err := os.Rename(stage, dest); err != nil {
		return fmt.Errorf("commit copied entry: %w", err)
	}
	return os.RemoveAll(src)
}

func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
