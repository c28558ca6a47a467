package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DirPerm is the permission used for created directories.
const DirPerm = 0o750

// FilePerm is the permission used for written report files.
const FilePerm = 0o600

// EnsureDir creates dir and its parents if missing. Calling it on an
// existing directory is a no-op. An empty dir means the working directory.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	return EnsureDir(filepath.Dir(path))
}

// Slug turns a page title into a file-name-safe identifier:
// diacritics are stripped, letters are lower-cased and every run of other
// characters becomes a single dash. "Crédit Cards" becomes "credit-cards".
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// ScreenshotPath returns the screenshot file of a page in dir. Suites share
// the directory, so the suite is part of the name: <suite>-<title>.png.
// An empty suite leaves only the title.
func ScreenshotPath(dir, suite, title string) string {
	name := Slug(title)
	if suite != "" {
		name = Slug(suite) + "-" + name
	}
	return filepath.Join(dir, name+".png")
}

// CaptchaScreenshotPath returns the evidence file for a CAPTCHA seen at t.
func CaptchaScreenshotPath(dir string, t time.Time) string {
	return filepath.Join(dir, "captcha-detected-"+strconv.FormatInt(t.UnixMilli(), 10)+".png")
}

// ResourceCSVPath returns the resource CSV file of the index-th (1-based)
// record of suite. The index keeps records with equal titles apart.
func ResourceCSVPath(dir, suite string, index int, title string) string {
	return filepath.Join(dir, Slug(suite)+"-"+strconv.Itoa(index)+"-"+Slug(title)+"-resources.csv")
}
