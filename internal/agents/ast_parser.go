package agents

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// binaryExtensions are never handed to the parser; RegexASTParser also
// sniffs content for invalid UTF-8 as a second binary guard.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true, ".bin": true,
}

var (
	goFuncPattern    = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`)
	goTypePattern    = regexp.MustCompile(`(?m)^type\s+(\w+)\s+(?:struct|interface)\b`)
	goImportPattern  = regexp.MustCompile(`"([^"]+)"`)
	pyFuncPattern    = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`)
	pyClassPattern   = regexp.MustCompile(`(?m)^\s*class\s+(\w+)`)
	pyImportPattern  = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([\w.]+)`)
	jsFuncPattern    = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`)
	jsClassPattern   = regexp.MustCompile(`(?m)^\s*(?:export\s+)?class\s+(\w+)`)
	jsImportPattern  = regexp.MustCompile(`(?m)^\s*import\s+.*from\s+['"]([^'"]+)['"]`)
)

// RegexASTParser extracts a coarse structural summary (classes, functions,
// imports) per file using language-specific regular expressions rather than
// a full parse. Unsupported or binary files are omitted from the result
// instead of failing the batch.
type RegexASTParser struct{}

// NewRegexASTParser constructs a RegexASTParser.
func NewRegexASTParser() *RegexASTParser { return &RegexASTParser{} }

func (p *RegexASTParser) Parse(files map[string]string) (map[string]model.ParsedFile, error) {
	result := make(map[string]model.ParsedFile, len(files))
	for path, content := range files {
		if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		if !utf8.ValidString(content) {
			continue
		}
		summary, ok := summarize(path, content)
		if !ok {
			continue
		}
		result[path] = model.ParsedFile{
			TreeHandle:        content,
			StructuralSummary: summary,
		}
	}
	return result, nil
}

func summarize(path, content string) (model.StructuralSummary, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return model.StructuralSummary{
			Functions: matchGroup1(goFuncPattern, content),
			Classes:   matchGroup1(goTypePattern, content),
			Imports:   matchGroup1(goImportPattern, importBlock(content)),
		}, true
	case ".py":
		return model.StructuralSummary{
			Functions: matchGroup1(pyFuncPattern, content),
			Classes:   matchGroup1(pyClassPattern, content),
			Imports:   matchGroup1(pyImportPattern, content),
		}, true
	case ".js", ".ts", ".jsx", ".tsx":
		return model.StructuralSummary{
			Functions: matchGroup1(jsFuncPattern, content),
			Classes:   matchGroup1(jsClassPattern, content),
			Imports:   matchGroup1(jsImportPattern, content),
		}, true
	default:
		return model.StructuralSummary{}, false
	}
}

// importBlock narrows Go import-path matching to the import(...) block (or
// a lone import "x" line) so ordinary string literals elsewhere in the file
// aren't mistaken for imports.
func importBlock(content string) string {
	start := strings.Index(content, "import (")
	if start < 0 {
		var lines []string
		for _, line := range strings.Split(content, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "import ") {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	}
	end := strings.Index(content[start:], ")")
	if end < 0 {
		return ""
	}
	return content[start : start+end]
}

func matchGroup1(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
