// Package rawfile reads the agent list and the per-agent biosample dumps
// from the local filesystem.
package rawfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

const rawExt = ".tsv"

// ReadAgents reads one agent name per line and returns the file-safe form of
// each (spaces replaced by underscores). Blank lines and repeated names are
// skipped; order is preserved.
func ReadAgents(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open agent list: %w", err)
	}
	defer f.Close()

	var agents []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := AgentFileName(sc.Text())
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		agents = append(agents, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read agent list: %w", err)
	}
	return agents, nil
}

// AgentFileName converts an agent name such as "Bacillus anthracis" to
// "Bacillus_anthracis".
func AgentFileName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// Source reads "<dir>/<agent>.tsv" files.
type Source struct {
	dir string
}

// NewSource creates a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Path returns the raw file path for an agent.
func (s *Source) Path(agent string) string {
	return filepath.Join(s.dir, agent+rawExt)
}

// ReadBlocks returns the biosample blocks of one agent's file. A missing file
// yields an error wrapping fs.ErrNotExist.
func (s *Source) ReadBlocks(_ context.Context, agent string) ([]domain.BiosampleBlock, error) {
	path := s.Path(agent)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw file: %w", err)
	}
	return domain.SplitBlocks(string(data)), nil
}
