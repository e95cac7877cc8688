// Package scanner builds the task catalog from a directory tree laid out as
// <root>/<year>/<variant-dir>/{solver.txt,*.jpg}.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/taskbot/shadbot/internal/database"
)

// ErrRootNotFound is returned when the scan root does not exist or is not a directory.
var ErrRootNotFound = errors.New("task root directory not found")

const (
	solverFile   = "solver.txt"
	taskImageExt = ".jpg"
)

var (
	variantDirPattern = regexp.MustCompile(`(?i)var[_-]?(\d+)`)
	taskFilePattern   = regexp.MustCompile(`(\d+)_(\d+)_(\d+)`)
)

// Result summarises one scan.
type Result struct {
	Discovered int // image files matching the naming convention
	Inserted   int // new catalog rows
	Skipped    int // malformed directories/files and failed upserts
	Stats      database.CatalogStats
}

// Scanner walks a task tree and upserts every task it finds.
type Scanner struct {
	store  database.Store
	root   string
	logger *slog.Logger
}

// New creates a Scanner rooted at root.
func New(store database.Store, root string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scanner{
		store:  store,
		root:   root,
		logger: logger.With("component", "scanner"),
	}
}

// Scan walks the tree once. Malformed entries are skipped and counted;
// only a missing root, context cancellation or a failure to read the final
// statistics abort the scan.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	startTime := time.Now()
	var res Result

	root, err := filepath.Abs(s.root)
	if err != nil {
		return res, fmt.Errorf("failed to resolve task root %q: %w", s.root, err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	s.logger.InfoContext(ctx, "Scanning tasks", "root", root)

	yearDirs, err := os.ReadDir(root)
	if err != nil {
		return res, fmt.Errorf("failed to read task root %s: %w", root, err)
	}

	for _, yearEntry := range yearDirs {
		if !yearEntry.IsDir() {
			continue
		}
		year, err := strconv.Atoi(yearEntry.Name())
		if err != nil {
			s.logger.DebugContext(ctx, "Skipping non-year directory", "dir", yearEntry.Name())
			res.Skipped++
			continue
		}

		if err := s.scanYear(ctx, filepath.Join(root, yearEntry.Name()), year, &res); err != nil {
			return res, err
		}
	}

	res.Stats, err = s.store.CatalogStats(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read catalog stats: %w", err)
	}

	s.logger.InfoContext(ctx, "Scan finished",
		"discovered", res.Discovered,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"total_tasks", res.Stats.TotalTasks,
		"years", res.Stats.Years,
		"variants", res.Stats.Variants,
		"duration", time.Since(startTime))
	return res, nil
}

func (s *Scanner) scanYear(ctx context.Context, dir string, year int, res *Result) error {
	variantDirs, err := os.ReadDir(dir)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read year directory", "dir", dir, "error", err)
		res.Skipped++
		return nil
	}

	for _, variantEntry := range variantDirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !variantEntry.IsDir() {
			continue
		}
		variant, ok := parseVariantDir(variantEntry.Name())
		if !ok {
			s.logger.DebugContext(ctx, "Skipping non-variant directory", "dir", variantEntry.Name(), "year", year)
			res.Skipped++
			continue
		}
		s.scanVariant(ctx, filepath.Join(dir, variantEntry.Name()), year, variant, res)
	}
	return nil
}

func (s *Scanner) scanVariant(ctx context.Context, dir string, dirYear, variant int, res *Result) {
	log := s.logger.With("dir", dir, "year", dirYear, "variant", variant)

	solutionURL, err := readSolutionURL(dir)
	if err != nil {
		log.WarnContext(ctx, "Failed to read solver.txt, continuing without solution link", "error", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.WarnContext(ctx, "Failed to read variant directory", "error", err)
		res.Skipped++
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != taskImageExt {
			continue
		}

		fileYear, position, ok := parseTaskFile(entry.Name())
		if !ok {
			log.DebugContext(ctx, "Skipping image with unexpected name", "file", entry.Name())
			res.Skipped++
			continue
		}
		res.Discovered++

		path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.WarnContext(ctx, "Failed to resolve image path", "file", entry.Name(), "error", err)
			res.Skipped++
			continue
		}

		inserted, err := s.store.UpsertTask(ctx, database.TaskInput{
			Year:        resolveYear(dirYear, fileYear),
			Variant:     variant,
			Position:    position,
			FilePath:    path,
			SolutionURL: solutionURL,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to store task", "file", entry.Name(), "error", err)
			res.Skipped++
			continue
		}
		if inserted {
			res.Inserted++
		}
	}
}

// readSolutionURL returns the trimmed content of solver.txt, or "" when the
// file is absent or blank.
func readSolutionURL(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, solverFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseVariantDir extracts N from names like "var1", "Var_2", "exam-VAR-03".
func parseVariantDir(name string) (int, bool) {
	m := variantDirPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseTaskFile extracts the embedded year and the position from
// "{year}_{variant}_{position}.jpg". The embedded variant is ignored.
func parseTaskFile(name string) (fileYear, position int, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	m := taskFilePattern.FindStringSubmatch(stem)
	if m == nil {
		return 0, 0, false
	}
	fileYear, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	position, err = strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, false
	}
	if fileYear < 100 {
		fileYear += 2000
	}
	return fileYear, position, true
}

// resolveYear prefers the directory year once it looks like a full year.
func resolveYear(dirYear, fileYear int) int {
	if dirYear >= 2000 {
		return dirYear
	}
	return fileYear
}
