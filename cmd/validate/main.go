// Command validate performs integrity checks on a finished run: every agent
// has an output file, every row is well formed, and every row traces back to
// a block in the agent's raw file with the same date and resolved location.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -agents agents_list.txt \
//	  -raw-dir raw_data \
//	  -out-dir clean_data \
//	  -countries data/countries.json \
//	  -regions data/regions.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/couchcryptid/agent-precip-etl/internal/adapter/lookup"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/parquet"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// agentData holds what was read for one agent.
type agentData struct {
	agent     string
	table     domain.OutputTable
	hasOutput bool
	blocks    []domain.BiosampleBlock
	hasRaw    bool
}

func main() {
	agentsPath := flag.String("agents", "agents_list.txt", "agent list")
	rawDir := flag.String("raw-dir", "raw_data", "directory of <agent>.tsv files")
	outDir := flag.String("out-dir", "clean_data", "directory of <agent>.parquet files")
	countriesPath := flag.String("countries", "data/countries.json", "country dictionary")
	regionsPath := flag.String("regions", "data/regions.json", "region dictionary")
	flag.Parse()

	if code := run(*agentsPath, *rawDir, *outDir, *countriesPath, *regionsPath); code != 0 {
		os.Exit(code)
	}
}

func run(agentsPath, rawDir, outDir, countriesPath, regionsPath string) int {
	fmt.Println("=== Agent Precipitation Output Validation ===")
	fmt.Println()

	agents, err := rawfile.ReadAgents(agentsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	tables, err := lookup.LoadTables(countriesPath, regionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	data, err := loadAll(agents, rawDir, outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCoverage(data),
		validateRowIntegrity(data),
		validateSourceConsistency(data, tables),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	rows, blocks := 0, 0
	for _, d := range data {
		rows += len(d.table.Rows)
		blocks += len(d.blocks)
	}
	fmt.Println()
	fmt.Printf("Agents: %d, raw blocks: %d, output rows: %d\n", len(data), blocks, rows)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadAll(agents []string, rawDir, outDir string) ([]agentData, error) {
	src := rawfile.NewSource(rawDir)
	out := make([]agentData, 0, len(agents))
	for _, agent := range agents {
		d := agentData{agent: agent}

		blocks, err := src.ReadBlocks(context.Background(), agent)
		switch {
		case err == nil:
			d.blocks, d.hasRaw = blocks, true
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}

		path := filepath.Join(outDir, agent+".parquet")
		if _, err := os.Stat(path); err == nil {
			table, err := parquet.ReadTable(path, agent)
			if err != nil {
				return nil, err
			}
			d.table, d.hasOutput = table, true
		}
		out = append(out, d)
	}
	return out, nil
}

// ── Phase 1: every agent has an output file ──

func validateCoverage(data []agentData) *phase {
	p := &phase{name: "Output coverage"}
	for _, d := range data {
		if !d.hasOutput {
			p.errorf("%s: no output file", d.agent)
			continue
		}
		if !d.hasRaw && len(d.table.Rows) > 0 {
			p.errorf("%s: %d rows but no raw file", d.agent, len(d.table.Rows))
		}
	}
	fmt.Printf("Phase 1: checked %d agents for output files\n", len(data))
	return p
}

// ── Phase 2: rows are well formed ──

func validateRowIntegrity(data []agentData) *phase {
	p := &phase{name: "Row integrity"}
	checked := 0
	for _, d := range data {
		seen := make(map[string]bool, len(d.table.Rows))
		for i, r := range d.table.Rows {
			checked++
			checkRow(p, d.agent, i, r)
			if seen[r.Biosample] {
				p.errorf("%s row %d: duplicate biosample %s", d.agent, i, r.Biosample)
			}
			seen[r.Biosample] = true
		}
	}
	fmt.Printf("Phase 2: checked %d rows\n", checked)
	return p
}

func checkRow(p *phase, agent string, i int, r domain.OutputRow) {
	if r.Biosample == "" {
		p.errorf("%s row %d: empty biosample", agent, i)
	}
	if r.Agent != agent {
		p.errorf("%s row %d: agent %q does not match file", agent, i, r.Agent)
	}
	if r.Date == "" {
		p.errorf("%s row %d: empty date", agent, i)
	}
	if !countryCodeRe.MatchString(r.Country) {
		p.errorf("%s row %d: country %q is not a 2-letter code", agent, i, r.Country)
	}
	if math.IsNaN(r.Precipitation) || math.IsInf(r.Precipitation, 0) || r.Precipitation < 0 {
		p.errorf("%s row %d: precipitation %v out of range", agent, i, r.Precipitation)
	}
}

// ── Phase 3: rows trace back to raw blocks ──

func validateSourceConsistency(data []agentData, tables domain.LookupTables) *phase {
	p := &phase{name: "Source consistency"}
	for _, d := range data {
		expected := make(map[string]domain.OutputRow)
		for _, b := range d.blocks {
			parsed, err := domain.ParseBiosample(b)
			if err != nil {
				continue
			}
			loc, err := domain.ResolveLocation(parsed.RawLocation, tables)
			if err != nil {
				continue
			}
			expected[parsed.Accession] = domain.OutputRow{
				Biosample: parsed.Accession,
				Agent:     d.agent,
				Date:      parsed.CollectionDate,
				Country:   loc.CountryCode,
				Region:    loc.Region(),
			}
		}

		if len(d.table.Rows) > len(expected) {
			p.errorf("%s: %d rows exceed %d resolvable blocks", d.agent, len(d.table.Rows), len(expected))
		}
		for _, r := range d.table.Rows {
			want, ok := expected[r.Biosample]
			if !ok {
				p.errorf("%s: %s has no resolvable raw block", d.agent, r.Biosample)
				continue
			}
			want.Precipitation = r.Precipitation
			if want != r {
				p.errorf("%s: %s mismatch: raw %+v, output %+v", d.agent, r.Biosample, want, r)
			}
		}
	}
	fmt.Printf("Phase 3: traced rows of %d agents to raw blocks\n", len(data))
	return p
}
