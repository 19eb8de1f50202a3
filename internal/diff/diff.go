// internal/diff/diff.go
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int // 1-based, 0 for additions
	NewNum  int // 1-based, 0 for deletions
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// DiffResult contains the complete diff information
type DiffResult struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent []byte) *DiffResult {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	lines, pos := e.script(oldLines, newLines)

	result := &DiffResult{Hunks: e.hunks(lines, pos)}
	for _, line := range lines {
		switch line.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	return result
}

// DiffValues diffs the indented JSON renderings of two values.
func (e *Engine) DiffValues(oldValue, newValue any) (*DiffResult, error) {
	oldJSON, err := json.MarshalIndent(oldValue, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling old value: %w", err)
	}
	newJSON, err := json.MarshalIndent(newValue, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling new value: %w", err)
	}
	return e.Diff(oldJSON, newJSON), nil
}

// Empty reports whether the two sides were identical.
func (r *DiffResult) Empty() bool {
	return r.Stats.Changes == 0
}

func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// position is how many old and new lines precede a script line.
type position struct {
	old, new int
}

// script walks a suffix LCS table and emits the edit script in order.
func (e *Engine) script(oldLines, newLines [][]byte) ([]Line, []position) {
	n, m := len(oldLines), len(newLines)

	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if bytes.Equal(oldLines[i], newLines[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var (
		lines []Line
		pos   []position
	)
	emit := func(l Line, i, j int) {
		lines = append(lines, l)
		pos = append(pos, position{old: i, new: j})
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case bytes.Equal(oldLines[i], newLines[j]):
			emit(Line{Type: Context, Content: string(oldLines[i]), OldNum: i + 1, NewNum: j + 1}, i, j)
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			emit(Line{Type: Deletion, Content: string(oldLines[i]), OldNum: i + 1}, i, j)
			i++
		default:
			emit(Line{Type: Addition, Content: string(newLines[j]), NewNum: j + 1}, i, j)
			j++
		}
	}
	for ; i < n; i++ {
		emit(Line{Type: Deletion, Content: string(oldLines[i]), OldNum: i + 1}, i, j)
	}
	for ; j < m; j++ {
		emit(Line{Type: Addition, Content: string(newLines[j]), NewNum: j + 1}, i, j)
	}

	return lines, pos
}

// hunks groups changed lines with up to contextLines of surrounding context,
// merging groups whose context would overlap.
func (e *Engine) hunks(lines []Line, pos []position) []Hunk {
	var hunks []Hunk
	ctx := e.contextLines

	for k := 0; k < len(lines); {
		if lines[k].Type == Context {
			k++
			continue
		}

		start := max(0, k-ctx)
		end := k
		for next := k + 1; next < len(lines); next++ {
			if lines[next].Type != Context {
				end = next
				continue
			}
			if next-end > 2*ctx {
				break
			}
		}
		stop := min(len(lines), end+ctx+1)

		hunk := Hunk{Lines: append([]Line(nil), lines[start:stop]...)}
		for _, l := range hunk.Lines {
			if l.Type != Addition {
				hunk.OldLines++
			}
			if l.Type != Deletion {
				hunk.NewLines++
			}
		}
		hunk.OldStart = pos[start].old
		if hunk.OldLines > 0 {
			hunk.OldStart++
		}
		hunk.NewStart = pos[start].new
		if hunk.NewLines > 0 {
			hunk.NewStart++
		}

		hunks = append(hunks, hunk)
		k = stop
	}

	return hunks
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
