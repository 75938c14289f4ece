// ABOUTME: Naming and discovery of date-stamped model artifacts in the models directory.
// ABOUTME: Names embed YYYYMMDD so lexical order equals chronological order.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	Prefix    = "gbm_model_"
	Extension = ".json"

	dateLayout = "20060102"
	lockName   = ".train.lock"
)

// Name returns the artifact file name for a training day.
func Name(day time.Time) string {
	return Prefix + day.Format(dateLayout) + Extension
}

// Path joins dir and the artifact name for day.
func Path(dir string, day time.Time) string {
	return filepath.Join(dir, Name(day))
}

// DateOf parses the training day embedded in an artifact path.
func DateOf(path string) (time.Time, error) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, Prefix) || !strings.HasSuffix(base, Extension) {
		return time.Time{}, fmt.Errorf("not a model artifact: %s", base)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, Prefix), Extension)
	day, err := time.Parse(dateLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse artifact date %q: %w", stamp, err)
	}
	return day, nil
}

// List returns artifact paths in dir, newest first. A missing dir yields none.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Prefix+"*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// Latest returns the newest artifact path, or ok=false when there is none.
func Latest(dir string) (path string, ok bool, err error) {
	paths, err := List(dir)
	if err != nil {
		return "", false, err
	}
	if len(paths) == 0 {
		return "", false, nil
	}
	return paths[0], true, nil
}

// Lock takes an exclusive advisory lock on dir so concurrent training runs
// serialize their artifact and log writes. Call the returned func to release.
func Lock(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, lockName))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock models directory: %w", err)
	}
	return fl.Unlock, nil
}
