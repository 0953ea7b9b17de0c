package compile

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// rootDeclPattern matches the editor magic comment that names a project's
// root document, e.g. "% !TEX root = main.tex" or "%!TeX root=../thesis.tex".
var rootDeclPattern = regexp.MustCompile(`(?im)^\s*%+\s*!\s*tex\s+root\s*=\s*(.+?)\s*$`)

// Scoring weights for the heuristic fallback. A conventional filename
// outranks document structure, which outranks stray fragments.
const (
	scoreMainName      = 50
	scoreDocumentclass = 40
	scoreBeginDocument = 20
	scoreEndDocument   = 5
)

// resolveRoot picks the document the toolchain should compile. The cascade:
// an explicit root declaration wins, then a top-level main.tex, then the
// best-scoring .tex file. Returns ErrNoTexFiles when the tree holds no .tex
// file at all.
func resolveRoot(workdir string) (string, error) {
	texFiles, err := listTexFiles(workdir)
	if err != nil {
		return "", err
	}

	if root := pickDeclaredRoot(workdir, texFiles); root != "" {
		return root, nil
	}

	main := filepath.Join(workdir, "main.tex")
	if isRegularFile(main) {
		return main, nil
	}

	if len(texFiles) == 0 {
		return "", ErrNoTexFiles
	}

	return pickScoredRoot(texFiles), nil
}

// listTexFiles walks workdir and returns every .tex file in lexical order.
func listTexFiles(workdir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(workdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".tex" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// pickDeclaredRoot tallies root declarations across the project and returns
// the most-referenced target, or "" when no file declares one. Declarations
// resolve relative to the declaring file's directory. Targets outside
// workdir or pointing at nothing are ignored rather than fatal: a stray
// declaration must not break an otherwise buildable project.
func pickDeclaredRoot(workdir string, texFiles []string) string {
	counts := make(map[string]int)

	for _, path := range texFiles {
		text := readTextFile(path)
		if text == "" {
			continue
		}
		declared := extractRootDecl(text)
		if declared == "" {
			continue
		}

		candidate := declared
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(filepath.Dir(path), candidate)
		}
		candidate = filepath.Clean(candidate)

		if escapesDir(workdir, candidate) {
			continue
		}
		if !isRegularFile(candidate) {
			continue
		}

		counts[candidate]++
	}

	if len(counts) == 0 {
		return ""
	}

	// Most referenced wins; ties go to the shorter, then lexically
	// smaller, path.
	candidates := make([]string, 0, len(counts))
	for path := range counts {
		candidates = append(candidates, path)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	return candidates[0]
}

// extractRootDecl returns the root path named by the first declaration
// comment in text, with surrounding quotes stripped, or "".
func extractRootDecl(text string) string {
	m := rootDeclPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), `"'`)
}

// pickScoredRoot ranks candidates by score, breaking ties toward the
// shorter, then lexically smaller, path.
func pickScoredRoot(texFiles []string) string {
	best := texFiles[0]
	bestScore := scoreTexFile(best, readTextFile(best))

	for _, path := range texFiles[1:] {
		score := scoreTexFile(path, readTextFile(path))
		if score > bestScore ||
			(score == bestScore && len(path) < len(best)) ||
			(score == bestScore && len(path) == len(best) && path < best) {
			best, bestScore = path, score
		}
	}

	return best
}

// scoreTexFile rates how likely path is to be the document the author
// intends to build.
func scoreTexFile(path, text string) int {
	score := 0

	if strings.EqualFold(filepath.Base(path), "main.tex") {
		score += scoreMainName
	}
	if strings.Contains(text, `\documentclass`) {
		score += scoreDocumentclass
	}
	if strings.Contains(text, `\begin{document}`) {
		score += scoreBeginDocument
	}
	if strings.Contains(text, `\end{document}`) {
		score += scoreEndDocument
	}

	return score
}

// readTextFile returns the file's content, or "" when it cannot be read.
// An unreadable file still participates in resolution by name alone.
func readTextFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
