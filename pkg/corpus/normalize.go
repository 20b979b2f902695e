package corpus

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PrepareTargetDir makes sure dir exists and is empty. A non-empty dir is
// wiped only when wipe is set.
func PrepareTargetDir(dir string, wipe bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0755)
	case err != nil:
		return fmt.Errorf("reading target directory: %w", err)
	case len(entries) == 0:
		return nil
	case !wipe:
		return fmt.Errorf("target directory %s is not empty", dir)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("wiping target directory: %w", err)
	}
	return os.MkdirAll(dir, 0755)
}

// NormalizedName returns "<zero-padded id>.<spam|ham>".
func NormalizedName(id, width int, isSpam bool) string {
	label := "ham"
	if isSpam {
		label = "spam"
	}
	return fmt.Sprintf("%0*d.%s", width, id, label)
}

// Normalize copies every target of every dataset into targetDir under a
// single running counter, so all years share one flat naming scheme.
// progress, if non-nil, is called after each copy.
func Normalize(datasets []*Dataset, targetDir string, width int, progress func(ds *Dataset, t Target, name string)) (int, error) {
	count := 0
	for _, ds := range datasets {
		for target, err := range ds.Walk(Unbounded) {
			if err != nil {
				return count, fmt.Errorf("dataset %s: %w", ds.Name, err)
			}

			name := NormalizedName(count, width, target.IsSpam)
			if err := copyFile(target.Path, filepath.Join(targetDir, name)); err != nil {
				return count, err
			}
			count++

			if progress != nil {
				progress(ds, target, name)
			}
		}
	}
	return count, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
