package publish

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BundleInput describes one result bundle: everything under ResultDir plus a
// generated README, zipped to OutputPath.
type BundleInput struct {
	ResultDir  string
	OutputPath string
	SystemName string
}

// CreateBundle zips the result directory so a run can be attached to an
// article or shared whole. Returns the paths that went into the archive.
func CreateBundle(input *BundleInput) ([]string, error) {
	f, err := os.Create(input.OutputPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	var bundled []string
	err = filepath.WalkDir(input.ResultDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isResultArtifact(path) {
			return nil
		}
		rel, err := filepath.Rel(input.ResultDir, path)
		if err != nil {
			return err
		}
		err = addFile(w, path, rel)
		if err != nil {
			return err
		}
		bundled = append(bundled, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bundling %s failed: %w", input.ResultDir, err)
	}

	readme, err := w.Create("README.md")
	if err != nil {
		return nil, err
	}
	_, err = io.WriteString(readme, bundleReadme(input, bundled))
	if err != nil {
		return nil, err
	}
	return bundled, nil
}

// isResultArtifact keeps the archive to run outputs. Bundles are re-created
// from the same directory, so the previous bundle itself is excluded.
func isResultArtifact(path string) bool {
	switch filepath.Ext(path) {
	case ".json", ".html", ".svg":
		return true
	default:
		return false
	}
}

func addFile(w *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

func bundleReadme(input *BundleInput, bundled []string) string {
	var b strings.Builder
	b.WriteString("# BSON vs JSON insert benchmark results\n\n")
	fmt.Fprintf(&b, "Bundled %s", time.Now().Format("2006-01-02 15:04:05"))
	if input.SystemName != "" {
		fmt.Fprintf(&b, " on %s", input.SystemName)
	}
	b.WriteString(".\n\nContents:\n\n")
	for _, name := range bundled {
		fmt.Fprintf(&b, "- `%s`\n", name)
	}
	b.WriteString("\nOpen `benchmark_report.html` in a browser for charts and tables.\n")
	return b.String()
}
