package agents

import (
	"regexp"
	"strings"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// DependencyImpactAnalyzer traces how a set of changed files propagates
// through a caller-supplied dependency graph via breadth-first search,
// so that the first path discovered to any dependent is the shortest one.
type DependencyImpactAnalyzer struct{}

// NewDependencyImpactAnalyzer constructs the BFS-based ImpactAnalyzer.
func NewDependencyImpactAnalyzer() *DependencyImpactAnalyzer {
	return &DependencyImpactAnalyzer{}
}

var diffGitLine = regexp.MustCompile(`^diff --git a/(\S+) b/(\S+)`)

// ParseChangedFilesFromDiff extracts the "b/" side of every `diff --git`
// header line, used when the caller has a diff but no explicit changed-file
// list.
func ParseChangedFilesFromDiff(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		m := diffGitLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		file := m[2]
		if !seen[file] {
			seen[file] = true
			files = append(files, file)
		}
	}
	return files
}

// Analyze runs a breadth-first traversal of dependencyGraph starting from
// changedFiles (or, if changedFiles is empty, from files parsed out of
// diff). Each changed file itself is recorded as a DIRECT entity; every
// entity reachable from it is recorded as INDIRECT, with PropagationPath
// set to the first (shortest) path discovered. A visited set prevents an
// entity from being revisited once reached.
func (a *DependencyImpactAnalyzer) Analyze(diff string, dependencyGraph map[string][]string, changedFiles []string) ([]model.ImpactedEntity, error) {
	changed := changedFiles
	if len(changed) == 0 {
		changed = ParseChangedFilesFromDiff(diff)
	}

	var entities []model.ImpactedEntity
	visited := make(map[string]bool)

	type queued struct {
		name string
		path []string
	}
	var queue []queued

	for _, file := range changed {
		if visited[file] {
			continue
		}
		visited[file] = true
		entities = append(entities, model.ImpactedEntity{
			Name:            file,
			Kind:            "file",
			Level:           model.ImpactDirect,
			PropagationPath: []string{file},
		})
		queue = append(queue, queued{name: file, path: []string{file}})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range dependencyGraph[current.name] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			path := append(append([]string{}, current.path...), dependent)
			entities = append(entities, model.ImpactedEntity{
				Name:            dependent,
				Kind:            "file",
				Level:           model.ImpactIndirect,
				PropagationPath: path,
			})
			queue = append(queue, queued{name: dependent, path: path})
		}
	}

	return entities, nil
}
