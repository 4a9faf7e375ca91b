// Package run records each analysis as a manifest (run.json) inside its
// result directory.
package run

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
	"github.com/KaramelBytes/corrloom-cli/internal/utils"
)

// ManifestFile is the manifest name inside a result directory.
const ManifestFile = "run.json"

// Run describes one analysis persisted on disk.
type Run struct {
	ID          string                   `json:"id"`
	Source      Source                   `json:"source"`
	Threshold   float64                  `json:"threshold"`
	Measures    []analysis.Measure       `json:"measures"`
	InputRows   int                      `json:"input_rows"`
	DroppedRows int                      `json:"dropped_rows"`
	Columns     int                      `json:"columns"`
	Pairs       map[analysis.Measure]int `json:"pairs"`
	Artifacts   []string                 `json:"artifacts"`
	Warnings    []string                 `json:"warnings,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	CompletedAt time.Time                `json:"completed_at"`

	// Not serialized: the result directory holding run.json
	rootDir string
}

// Source identifies the input of a run.
type Source struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Sheet   string    `json:"sheet,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// NewSource stats path and describes it. Sources without a file (HTTP
// bodies) use a zero Size and ModTime.
func NewSource(path, sheet string) (Source, error) {
	s := Source{Path: path, Name: filepath.Base(path), Sheet: sheet}
	info, err := os.Stat(path)
	if err != nil {
		return s, fmt.Errorf("stat source: %w", err)
	}
	s.Size = info.Size()
	s.ModTime = info.ModTime()
	return s, nil
}

// New constructs an in-memory run rooted at dir. Call Save() to persist.
func New(dir string, src Source) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    src,
		Pairs:     map[analysis.Measure]int{},
		CreatedAt: time.Now(),
		rootDir:   dir,
	}
}

// Create picks a fresh result directory under outputDir for a run started
// at now, suffixing "-2", "-3"… when the minute-resolution name is taken.
func Create(outputDir string, src Source, now time.Time) (*Run, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(outputDir, report.DirName(now))
	dir := base
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create result dir: %w", err)
		}
		dir = fmt.Sprintf("%s-%d", base, i)
	}
	r := New(dir, src)
	r.CreatedAt = now
	return r, nil
}

// Load reads run.json from dir.
func Load(dir string) (*Run, error) {
	path := filepath.Join(dir, ManifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	r.rootDir = dir
	return &r, nil
}

// Dir returns the result directory.
func (r *Run) Dir() string { return r.rootDir }

// Record copies the summary numbers of res and the artifact list.
func (r *Run) Record(res *analysis.Result, artifacts []string) {
	r.Threshold = res.Threshold
	r.Measures = append([]analysis.Measure(nil), res.Measures...)
	r.InputRows = res.Stats.InputRows
	r.DroppedRows = res.Stats.DroppedRows
	if res.Table != nil {
		r.Columns = len(res.Table.Columns)
	}
	r.Pairs = make(map[analysis.Measure]int, len(res.Measures))
	for _, m := range res.Measures {
		r.Pairs[m] = len(res.FilteredPairs(m))
	}
	r.Artifacts = append(r.Artifacts, artifacts...)
	r.Warnings = append([]string(nil), res.Warnings...)
	r.CompletedAt = time.Now()
}

// Save writes run.json using atomic write.
func (r *Run) Save() error {
	if r.rootDir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(r.rootDir, ManifestFile), data)
}

// List returns the runs found directly under outputDir, newest first.
// Directories without a readable manifest are skipped.
func List(outputDir string) ([]*Run, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var runs []*Run
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "correlation_result_") {
			continue
		}
		r, err := Load(filepath.Join(outputDir, e.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].rootDir > runs[j].rootDir
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}
