// Command genmock writes a synthetic agent list and BioSample raw files for
// local runs. Names are drawn from the lookup dictionaries, and a share of the
// blocks is deliberately malformed so every rejection path is exercised. It
// uses the domain package to report how many blocks should survive parsing
// and location resolution.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -countries data/countries.json \
//	  -regions data/regions.json \
//	  -agents "Bacillus anthracis,Yersinia pestis,Ricin" \
//	  -out . -per-agent 200 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/agent-precip-etl/internal/adapter/lookup"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

var (
	hosts   = []string{"Homo sapiens", "Bos taurus", "Ovis aries", "soil", "not collected"}
	sources = []string{"blood", "tissue", "environmental swab", "feces", "water"}
)

// defect names the way a generated block is broken, if at all.
type defect int

const (
	defectNone defect = iota
	defectNoDate
	defectNoLocation
	defectNoAccession
	defectSentinelDate
	defectYearOnly
	defectUnknownCountry
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	countriesPath := flag.String("countries", "data/countries.json", "country dictionary")
	regionsPath := flag.String("regions", "data/regions.json", "region dictionary")
	agentsFlag := flag.String("agents", "Bacillus anthracis,Yersinia pestis", "comma-separated agent names")
	outDir := flag.String("out", ".", "directory receiving agents_list.txt and raw_data/")
	perAgent := flag.Int("per-agent", 100, "blocks per agent")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *perAgent <= 0 {
		flag.Usage()
		return fmt.Errorf("-per-agent must be positive")
	}

	tables, err := lookup.LoadTables(*countriesPath, *regionsPath)
	if err != nil {
		return err
	}
	countries, err := dictionaryKeys(*countriesPath)
	if err != nil {
		return err
	}
	regions, err := dictionaryKeys(*regionsPath)
	if err != nil {
		return err
	}

	var agents []string
	for _, a := range strings.Split(*agentsFlag, ",") {
		if a = strings.TrimSpace(a); a != "" {
			agents = append(agents, a)
		}
	}
	if len(agents) == 0 {
		return fmt.Errorf("no agents given")
	}

	rawDir := filepath.Join(*outDir, "raw_data")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, "agents_list.txt"), []byte(strings.Join(agents, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("write agent list: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	g := &generator{rng: rng, countries: countries, regions: regions}

	total := 0
	for _, agent := range agents {
		file := rawfile.AgentFileName(agent)
		blocks := make([]string, 0, *perAgent)
		for i := range *perAgent {
			blocks = append(blocks, g.block(agent, i+1))
		}
		path := filepath.Join(rawDir, file+".tsv")
		if err := os.WriteFile(path, []byte(strings.Join(blocks, "\n\n")+"\n"), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		resolvable := countResolvable(blocks, tables)
		total += len(blocks)
		log.Printf("%s: %d blocks, %d resolvable (%s)", file, len(blocks), resolvable, path)
	}

	log.Printf("total: %d blocks for %d agents", total, len(agents))
	return nil
}

type generator struct {
	rng       *rand.Rand
	countries []string
	regions   []string
	accession int
}

func (g *generator) block(agent string, n int) string {
	g.accession++
	acc := fmt.Sprintf("SAMN%08d", 10000000+g.accession)

	d := defectNone
	if g.rng.IntN(4) == 0 {
		d = defect(1 + g.rng.IntN(int(defectUnknownCountry)))
	}

	date := fmt.Sprintf("%d-%02d-%02d", 2000+g.rng.IntN(24), 1+g.rng.IntN(12), 1+g.rng.IntN(28))
	switch d {
	case defectSentinelDate:
		date = []string{"missing", "unknown", "not applicable"}[g.rng.IntN(3)]
	case defectYearOnly:
		date = date[:4]
	}

	location := g.location()
	if d == defectUnknownCountry {
		location = "Atlantis: Poseidonis"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d: Pathogen: clinical or host-associated sample from %s\n", n, agent)
	fmt.Fprintf(&b, "Identifiers: BioSample: %s; Sample name: %s-%d\n", acc, strings.ReplaceAll(agent, " ", "-"), n)
	fmt.Fprintf(&b, "Organism: %s\n", agent)
	b.WriteString("Attributes:\n")
	fmt.Fprintf(&b, "    /strain=\"GM-%04d\"\n", g.rng.IntN(10000))
	if d != defectNoDate {
		fmt.Fprintf(&b, "    /collection date=\"%s\"\n", date)
	}
	if d != defectNoLocation {
		fmt.Fprintf(&b, "    /geographic location=\"%s\"\n", location)
	}
	fmt.Fprintf(&b, "    /host=\"%s\"\n", hosts[g.rng.IntN(len(hosts))])
	fmt.Fprintf(&b, "    /isolation source=\"%s\"\n", sources[g.rng.IntN(len(sources))])
	if d != defectNoAccession {
		fmt.Fprintf(&b, "Accession: %s\tID: %d", acc, 20000000+g.accession)
	}
	return b.String()
}

// location returns "<country>", "<country>:<region>" or
// "<country>:<region>, <locality>", using "USA" for a third of them.
func (g *generator) location() string {
	country := "USA"
	if g.rng.IntN(3) != 0 {
		country = titleCase(g.countries[g.rng.IntN(len(g.countries))])
	}
	switch g.rng.IntN(3) {
	case 0:
		return country
	case 1:
		return country + ":" + titleCase(g.regions[g.rng.IntN(len(g.regions))])
	default:
		return country + ":" + titleCase(g.regions[g.rng.IntN(len(g.regions))]) + ", Field Site " + fmt.Sprint(g.rng.IntN(50))
	}
}

func countResolvable(blocks []string, tables domain.LookupTables) int {
	n := 0
	for _, b := range blocks {
		parsed, err := domain.ParseBiosample(domain.BiosampleBlock(b))
		if err != nil {
			continue
		}
		if _, err := domain.ResolveLocation(parsed.RawLocation, tables); err != nil {
			continue
		}
		n++
	}
	return n
}

func dictionaryKeys(path string) ([]string, error) {
	tables, err := lookup.LoadDictionary(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
