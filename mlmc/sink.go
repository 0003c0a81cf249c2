package mlmc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DiffSink receives each level's correction vector as it is computed,
// write-through, one call per level. Implementations decide the format;
// the core only guarantees call order (level 0 first).
type DiffSink interface {
	WriteLevel(level int, values []float64) error
}

// FileSink writes one plain-text file per level, one value per line, the
// same shape the modular input/output files use. With explicit names the
// l-th file takes the l-th name; otherwise files land in dir as
// level<l><suffix>.
type FileSink struct {
	dir    string
	suffix string
	names  []string
}

// NewFileSink writes level<l>_output_diffs.txt files into dir ("" = cwd).
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, suffix: "_output_diffs.txt"}
}

// NewNamedFileSink writes each level to the matching explicit file name.
func NewNamedFileSink(names ...string) *FileSink {
	return &FileSink{names: names}
}

func (s *FileSink) WriteLevel(level int, values []float64) error {
	path, err := s.levelPath(level)
	if err != nil {
		return err
	}
	return writeValuesFile(path, values)
}

func (s *FileSink) levelPath(level int) (string, error) {
	if s.names != nil {
		if level >= len(s.names) {
			return "", fmt.Errorf("%w: sink has %d file names but level %d was written", ErrInvalidType, len(s.names), level)
		}
		return s.names[level], nil
	}
	return filepath.Join(s.dir, fmt.Sprintf("level%d%s", level, s.suffix)), nil
}

// LoadLevelOutputs reads per-level model outputs back from plain-text files,
// one value per line, in level order. This is the third step of the modular
// workflow: an external runner evaluated the stored inputs and left one
// output file per level.
func LoadLevelOutputs(names []string) ([][]float64, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: output file names must be a non-empty slice", ErrInvalidType)
	}
	outputs := make([][]float64, len(names))
	for l, name := range names {
		values, err := readValuesFile(name)
		if err != nil {
			return nil, fmt.Errorf("loading level %d outputs: %w", l, err)
		}
		outputs[l] = values
	}
	return outputs, nil
}

// DefaultLevelFiles returns the conventional file names level<l><suffix>
// for a hierarchy of the given depth, e.g. DefaultLevelFiles(3, "_outputs.txt").
func DefaultLevelFiles(levels int, suffix string) []string {
	names := make([]string, levels)
	for l := range names {
		names[l] = fmt.Sprintf("level%d%s", l, suffix)
	}
	return names
}

func writeValuesFile(path string, values []float64) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, v := range values {
		if _, err := w.WriteString(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return w.Flush()
}

func readValuesFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make([]float64, 0, 64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		values = append(values, v)
	}
	return values, scanner.Err()
}
