// Package codemetrics implements the Code-Metrics Analyzer (spec.md
// §4.8): walks an extension's directory, classifies every source line
// as blank, comment, or code, counts structural constructs, and rolls
// the result into aggregate, risk-scored metrics.
package codemetrics

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/analysis"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/extension"
	"github.com/CPS-IT/typo3-upgrade-analyser/internal/pathresolver"
)

const analyzerName = "code_metrics"

var excludedPathParts = []string{"vendor", "node_modules", "Tests", "tests"}

var (
	classlikePattern = regexp.MustCompile(`^(class|interface|trait|enum)\s+\w+`)
	functionPattern  = regexp.MustCompile(`^\s*(public|private|protected|static)?\s*function\s+\w+`)
)

// Config tunes which files the walk considers source.
type Config struct {
	// SourceExtension is the file suffix counted as source, default ".php".
	SourceExtension string
}

func (c Config) withDefaults() Config {
	if c.SourceExtension == "" {
		c.SourceExtension = ".php"
	}
	return c
}

// Analyzer implements analyzer.Capability.
type Analyzer struct {
	cfg      Config
	resolver *pathresolver.Resolver
	logger   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Analyzer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, resolver: pathresolver.New(), logger: logger}
}

func (a *Analyzer) Name() string            { return analyzerName }
func (a *Analyzer) Description() string     { return "walks an extension's source tree and computes line/structure metrics" }
func (a *Analyzer) RequiredTools() []string { return nil }
func (a *Analyzer) Supports(ext extension.Extension) bool { return ext.IsThirdParty() }

// fileMetrics is the per-file tally the walk accumulates before
// rolling it into the extension-wide Metrics.
type fileMetrics struct {
	path         string
	totalLines   int
	blankLines   int
	commentLines int
	codeLines    int
	classlikes   int
	functions    int
	hasClass     bool
}

// Metrics is the extension-wide rollup (spec.md §4.8 "aggregate metrics").
type Metrics struct {
	FilesScanned     int
	TotalLines       int
	BlankLines       int
	CommentLines     int
	CodeLines        int
	Classlikes       int
	Functions        int
	Methods          int
	LargestFileLines int
	LargestFilePath  string
	AverageFileSize  int
}

func (a *Analyzer) DoAnalyze(ctx context.Context, ext extension.Extension, analysisCtx analysis.Context) analysis.Result {
	builder := analysis.NewResultBuilder(analyzerName, ext.Identifier())

	root, err := a.resolveExtensionPath(ext, analysisCtx)
	if err != nil {
		return analysis.Failure(analyzerName, ext.Identifier(), err)
	}

	files, err := a.collectFiles(ctx, root)
	if err != nil {
		return analysis.Failure(analyzerName, ext.Identifier(), err)
	}

	var perFile []fileMetrics
	for _, path := range files {
		if ctx.Err() != nil {
			return analysis.Failure(analyzerName, ext.Identifier(), ctx.Err())
		}
		fm, err := analyzeFile(path)
		if err != nil {
			a.logger.Warn("code_metrics: skipping unreadable file", "path", path, "error", err)
			continue
		}
		perFile = append(perFile, fm)
	}

	metrics := rollUp(perFile)

	builder.
		WithMetric("filesScanned", metrics.FilesScanned).
		WithMetric("totalLines", metrics.TotalLines).
		WithMetric("blankLines", metrics.BlankLines).
		WithMetric("commentLines", metrics.CommentLines).
		WithMetric("codeLines", metrics.CodeLines).
		WithMetric("classlikes", metrics.Classlikes).
		WithMetric("functions", metrics.Functions).
		WithMetric("methods", metrics.Methods).
		WithMetric("largestFileLines", metrics.LargestFileLines).
		WithMetric("largestFilePath", metrics.LargestFilePath).
		WithMetric("averageFileSize", metrics.AverageFileSize)

	builder.WithRiskScore(riskScore(metrics))

	if metrics.FilesScanned == 0 {
		builder.WithRecommendation("no source files found under the configured extension of " + a.cfg.SourceExtension)
	}

	return builder.Build()
}

// resolveExtensionPath uses the Path Resolver (spec.md §4.3) instead
// of naively joining the installation root and the extension key.
func (a *Analyzer) resolveExtensionPath(ext extension.Extension, analysisCtx analysis.Context) (string, error) {
	resp := a.resolver.Resolve(pathresolver.Request{
		InstallationPath:  analysisCtx.InstallationPath,
		PathType:          pathresolver.PathExtension,
		InstallationType:  pathresolver.InstallationAutoDetect,
		PathConfiguration: pathresolver.PathConfiguration{CustomPaths: analysisCtx.CustomPaths},
		ExtensionIdentifier: &pathresolver.ExtensionIdentifier{
			Key:          ext.Key,
			ComposerName: ext.ComposerName,
		},
	})
	if !resp.Success {
		return "", fmt.Errorf("resolving extension path: %v", resp.Errors)
	}
	return resp.ResolvedPath, nil
}

// collectFiles walks root and returns every path matching the
// configured source extension, skipping excluded subtrees entirely
// rather than just filtering their files, so the walk never descends
// into vendor/node_modules/test directories at all (spec.md §4.8).
func (a *Analyzer) collectFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if isExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, a.cfg.SourceExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isExcluded(name string) bool {
	for _, excluded := range excludedPathParts {
		if name == excluded {
			return true
		}
	}
	return false
}

// analyzeFile classifies every line of one source file per spec.md
// §4.8's rules: multi-line comment tracking, single-line comment
// markers, classlike detection, function/method detection.
func analyzeFile(path string) (fileMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileMetrics{}, err
	}
	defer f.Close()

	fm := fileMetrics{path: path}
	inBlockComment := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		fm.totalLines++

		switch {
		case inBlockComment:
			fm.commentLines++
			if strings.Contains(trimmed, "*/") {
				inBlockComment = false
			}
		case trimmed == "":
			fm.blankLines++
		case strings.HasPrefix(trimmed, "/*"):
			fm.commentLines++
			if !strings.Contains(trimmed, "*/") {
				inBlockComment = true
			}
		case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "#"):
			fm.commentLines++
		default:
			fm.codeLines++
			if classlikePattern.MatchString(trimmed) {
				fm.classlikes++
				fm.hasClass = true
			}
			if functionPattern.MatchString(trimmed) {
				fm.functions++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fileMetrics{}, err
	}

	return fm, nil
}

func rollUp(files []fileMetrics) Metrics {
	m := Metrics{FilesScanned: len(files)}
	for _, fm := range files {
		m.TotalLines += fm.totalLines
		m.BlankLines += fm.blankLines
		m.CommentLines += fm.commentLines
		m.CodeLines += fm.codeLines
		m.Classlikes += fm.classlikes
		m.Functions += fm.functions
		// A function is classified as a method when its enclosing file
		// contains a class definition (spec.md §4.8 heuristic).
		if fm.hasClass {
			m.Methods += fm.functions
		}
		if fm.totalLines > m.LargestFileLines {
			m.LargestFileLines = fm.totalLines
			m.LargestFilePath = fm.path
		}
	}
	if m.FilesScanned > 0 {
		m.AverageFileSize = int(roundHalfUp(float64(m.TotalLines) / float64(m.FilesScanned)))
	}
	return m
}

func roundHalfUp(v float64) float64 {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	whole := float64(int(v))
	if v-whole >= 0.5 {
		return whole + 1
	}
	return whole
}

// riskScore bands total size, largest-file size, and methods-per-file
// density, each contributing independently, clamped to 10 (spec.md
// §4.8 "risk scored by bands ... clamped to 10").
func riskScore(m Metrics) float64 {
	score := 1.0
	score += sizeBandScore(m.TotalLines)
	score += sizeBandScore(m.LargestFileLines)

	if m.FilesScanned > 0 {
		methodsPerFile := float64(m.Methods) / float64(m.FilesScanned)
		switch {
		case methodsPerFile > 40:
			score += 3
		case methodsPerFile > 20:
			score += 1.5
		case methodsPerFile > 10:
			score += 0.5
		}
	}

	if score > 10 {
		score = 10
	}
	return score
}

func sizeBandScore(lines int) float64 {
	switch {
	case lines > 10000:
		return 3
	case lines > 5000:
		return 2
	case lines > 2000:
		return 1
	case lines > 500:
		return 0.5
	default:
		return 0
	}
}
