package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zalepa/roadwatch/filter"
)

// ErrLoad marks a failure of the joined initial load. It is fatal: no
// dashboard is built from a partial store.
var ErrLoad = errors.New("dataset load failed")

// Sources names the files that make up a store.
type Sources struct {
	DrugTests     string `yaml:"drug_tests"`
	PositiveDrug  string `yaml:"positive_drug"`
	SeatbeltFines string `yaml:"seatbelt_fines"`
	DrugCrash     string `yaml:"drug_crash"`
	SeatbeltCrash string `yaml:"seatbelt_crash"`
	Boundaries    string `yaml:"boundaries"`
}

func (s Sources) path(n Name) string {
	switch n {
	case DrugTests:
		return s.DrugTests
	case PositiveDrug:
		return s.PositiveDrug
	case SeatbeltFines:
		return s.SeatbeltFines
	case DrugCrash:
		return s.DrugCrash
	case SeatbeltCrash:
		return s.SeatbeltCrash
	}
	return ""
}

// Paths lists every configured file, the tables in Names order and the
// boundary file last.
func (s Sources) Paths() []string {
	out := make([]string, 0, len(Names)+1)
	for _, n := range Names {
		out = append(out, s.path(n))
	}
	return append(out, s.Boundaries)
}

// DefaultCrashSince is the first year offered by the crash page.
const DefaultCrashSince = 2019

// Store is the shared in-memory handle populated by Load. It is read-only
// after construction and safe for concurrent readers.
type Store struct {
	tables map[Name]*Table
	Geo    *Geo
	// CrashSince is the earliest year listed in the crash page's options.
	CrashSince int
}

// NewStore assembles a store from already-parsed tables. Families without a
// table read as empty.
func NewStore(geo *Geo, tables ...*Table) *Store {
	s := &Store{tables: make(map[Name]*Table), Geo: geo, CrashSince: DefaultCrashSince}
	for _, t := range tables {
		s.tables[t.Name] = t
	}
	return s
}

// Table returns the table of family n, never nil.
func (s *Store) Table(n Name) *Table {
	if t, ok := s.tables[n]; ok {
		return t
	}
	return &Table{Name: n}
}

// Load reads all five tables and the boundary file concurrently. Either
// everything loads or Load returns an error wrapping ErrLoad.
func Load(ctx context.Context, src Sources, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	tables := make([]*Table, len(Names))
	for i, n := range Names {
		g.Go(func() error {
			path := src.path(n)
			if path == "" {
				return fmt.Errorf("%w: no path configured for %s", ErrLoad, n)
			}
			data, err := readFile(ctx, path)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrLoad, n, err)
			}
			t, err := ReadCSV(bytes.NewReader(data), n)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrLoad, err)
			}
			tables[i] = t
			logger.Debug("loaded table", "name", n, "path", path, "records", t.Len())
			return nil
		})
	}

	var geo *Geo
	g.Go(func() error {
		if src.Boundaries == "" {
			return fmt.Errorf("%w: no path configured for boundaries", ErrLoad)
		}
		data, err := readFile(ctx, src.Boundaries)
		if err != nil {
			return fmt.Errorf("%w: boundaries: %w", ErrLoad, err)
		}
		geo, err = ParseGeo(data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}
		logger.Debug("loaded boundaries", "path", src.Boundaries, "areas", len(geo.Areas))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("datasets loaded", "tables", len(tables), "elapsed", time.Since(start))
	return NewStore(geo, tables...), nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Route names the tables a chart family reads for one violation type.
type Route struct {
	// Enforcement is the fines or positive-count table.
	Enforcement Name
	// Tests is the total-tests table; empty for seatbelt.
	Tests Name
	Crash Name
}

// RouteFor is the dataset router. It is a pure lookup.
func RouteFor(v filter.Violation) Route {
	if v == filter.Seatbelt {
		return Route{Enforcement: SeatbeltFines, Crash: SeatbeltCrash}
	}
	return Route{Enforcement: PositiveDrug, Tests: DrugTests, Crash: DrugCrash}
}
