// Command tuplec binds the tuple declarations of program units and reports
// their types, members, diagnostics and the answers to conversion queries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/orizon-lang/tuples/internal/binder"
	"github.com/orizon-lang/tuples/internal/cli"
	"github.com/orizon-lang/tuples/internal/diagnostics"
	"github.com/orizon-lang/tuples/internal/tuples"
	"github.com/orizon-lang/tuples/internal/typedefs"
	"github.com/orizon-lang/tuples/internal/types"
)

const toolName = "tuplec"

var command = cli.CommandInfo{
	Name:        toolName,
	Usage:       "tuplec [OPTIONS] unit.json...",
	Description: "bind tuple declarations and answer conversion queries",
	Examples: []string{
		"tuplec unit.json",
		"tuplec -lang 7.0 -json a.json b.json",
		"tuplec -universe composites.json -watch unit.json",
		"tuplec -suppress ExplicitNamesOnAllOrNone,UnresolvedType unit.json",
	},
	Flags: []cli.FlagInfo{
		{Name: "config", Usage: "JSON configuration file"},
		{Name: "universe", Usage: "JSON type universe file (default: standard composites)"},
		{Name: "lang", Usage: "language version", Default: cli.DefaultLanguageVersion},
		{Name: "j", Usage: "number of units bound in parallel", Default: "number of CPUs"},
		{Name: "suppress", Usage: "comma-separated diagnostic kinds to drop from the report"},
		{Name: "json", Usage: "write the report as JSON"},
		{Name: "watch", Usage: "re-run when a unit or the universe file changes"},
		{Name: "v", Usage: "verbose logging"},
		{Name: "debug", Usage: "debug logging"},
		{Name: "version", Usage: "print version information"},
	},
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code: 0 on
// success, 1 when errors were reported, 2 on bad usage.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { cli.PrintCommandUsage(stderr, toolName, command) }

	configPath := fs.String("config", "", "")
	universe := fs.String("universe", "", "")
	lang := fs.String("lang", "", "")
	jobs := fs.Int("j", 0, "")
	suppress := fs.String("suppress", "", "")
	jsonOutput := fs.Bool("json", false, "")
	watch := fs.Bool("watch", false, "")
	verbose := fs.Bool("v", false, "")
	debug := fs.Bool("debug", false, "")
	version := fs.Bool("version", false, "")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *version {
		cli.PrintVersion(stdout, toolName, *jsonOutput)
		return 0
	}

	cfg, err := cli.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "universe":
			cfg.UniverseFile = *universe
		case "lang":
			cfg.LanguageVersion = *lang
		case "j":
			cfg.Parallelism = *jobs
		case "suppress":
			cfg.Suppress = splitList(*suppress)
		case "v":
			cfg.Verbose = *verbose
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	paths := fs.Args()
	if err := cli.ValidateArgs(paths, 1, command.Usage); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := cli.NewLogger(cfg.Verbose, cfg.Debug)
	logger.SetOutput(stderr)

	d := &driver{cfg: cfg, paths: paths, json: *jsonOutput, out: stdout, logger: logger}
	if !*watch {
		return d.check(ctx)
	}
	return d.watch(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type driver struct {
	cfg    *cli.Config
	paths  []string
	json   bool
	out    io.Writer
	logger *cli.Logger
}

func (d *driver) watch(ctx context.Context) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	d.check(ctx)
	watched := append([]string(nil), d.paths...)
	if d.cfg.UniverseFile != "" {
		watched = append(watched, d.cfg.UniverseFile)
	}
	d.logger.Info("watching %s", strings.Join(watched, ", "))

	err := typedefs.Watch(ctx, watched, typedefs.DefaultDebounce, func(changed []string) error {
		d.logger.Info("change detected in %s", strings.Join(changed, ", "))
		d.check(ctx)
		return nil
	})
	if err != nil {
		d.logger.Error("watch: %v", err)
		return 1
	}
	return 0
}

// check loads the universe and units afresh and writes one report.
func (d *driver) check(ctx context.Context) int {
	results, err := d.bind(ctx)
	if err != nil {
		d.logger.Error("%v", err)
		return 1
	}

	suppressed, err := d.cfg.SuppressedKinds()
	if err != nil {
		d.logger.Error("%v", err)
		return 1
	}
	rep := buildReport(results, d.cfg.MaxDiagnostics, suppressed)
	if d.json {
		enc := json.NewEncoder(d.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			d.logger.Error("write report: %v", err)
			return 1
		}
	} else {
		rep.writeText(d.out)
	}

	if rep.Failed {
		return 1
	}
	return 0
}

func (d *driver) bind(ctx context.Context) ([]*binder.Result, error) {
	universe := typedefs.Standard()
	if d.cfg.UniverseFile != "" {
		u, err := typedefs.Load(d.cfg.UniverseFile, nil)
		if err != nil {
			return nil, fmt.Errorf("load universe: %w", err)
		}
		universe = u
		d.logger.Info("loaded universe %s with composites %v", u.Source(), u.Arities())
	}

	v, err := d.cfg.Version()
	if err != nil {
		return nil, err
	}
	if !tuples.FeatureAvailable(v) {
		d.logger.Warn("language version %s predates tuple types", v)
	}

	units := make([]*binder.Unit, 0, len(d.paths))
	for _, p := range d.paths {
		u, err := binder.LoadUnit(p)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	tc := tuples.NewContext(universe, tuples.Options{LanguageVersion: v})
	b := binder.New(tc, types.NewTypeRegistry(), d.logger, d.cfg.Workers())
	results, err := b.BindUnits(ctx, units)
	if err != nil {
		return nil, err
	}
	st := tc.Stats()
	d.logger.Info("bound %d units: %d tuple types built, %d reused", len(units), st.Built, st.Hits)
	return results, nil
}

// ====== Report ======

type report struct {
	Units    []unitReport `json:"units"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
	Failed   bool         `json:"failed"`
	Summary  string       `json:"summary"`
}

type unitReport struct {
	Name         string         `json:"name"`
	Declarations []declReport   `json:"declarations"`
	Conversions  []answerReport `json:"conversions,omitempty"`
}

type declReport struct {
	ID          string       `json:"id"`
	Site        string       `json:"site"`
	Type        string       `json:"type,omitempty"`
	Underlying  string       `json:"underlying,omitempty"`
	Members     []string     `json:"members,omitempty"`
	Diagnostics []diagReport `json:"diagnostics,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type diagReport struct {
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Site      string `json:"site,omitempty"`
	Positions []int  `json:"positions,omitempty"`
}

type answerReport struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Via      []string `json:"via,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
	Explicit bool     `json:"explicit,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Steps    []string `json:"steps,omitempty"`
	Allowed  bool     `json:"allowed"`
	Error    string   `json:"error,omitempty"`
}

// path renders the query as "a -> b -> c", with a trailing "?" when the
// final target is wrapped.
func (ar answerReport) path() string {
	hops := append(append([]string{ar.From}, ar.Via...), ar.To)
	p := strings.Join(hops, " -> ")
	if ar.Nullable {
		p += "?"
	}
	return p
}

// buildReport applies the error limit and suppressions across the whole
// run, in unit order.
func buildReport(results []*binder.Result, maxDiagnostics int, suppressed []diagnostics.Kind) *report {
	rep := &report{}
	dm := diagnostics.NewDiagnosticManager()
	dm.SetErrorLimit(maxDiagnostics)
	for _, k := range suppressed {
		dm.Suppress(k)
	}
	for _, res := range results {
		ur := unitReport{Name: res.Unit}

		for _, bd := range res.Bindings {
			dr := declReport{ID: bd.ID, Site: bd.Site.String()}
			if bd.Err != nil {
				dr.Error = bd.Err.Error()
				rep.Failed = true
				ur.Declarations = append(ur.Declarations, dr)
				continue
			}
			dr.Type = bd.Type.Display()
			dr.Underlying = bd.Type.Underlying().String()
			for _, m := range bd.Type.Members() {
				dr.Members = append(dr.Members, m.String())
			}

			for _, dg := range bd.Diagnostics {
				if dm.AddDiagnostic(dg) {
					dr.Diagnostics = append(dr.Diagnostics, toDiagReport(dg))
				}
			}
			ur.Declarations = append(ur.Declarations, dr)
		}

		for _, a := range res.Answers {
			ar := answerReport{
				From:     a.Query.From,
				To:       a.Query.To,
				Via:      a.Query.Via,
				Nullable: a.Query.Nullable,
				Explicit: a.Query.Explicit,
				Allowed:  a.Allowed,
			}
			if a.Err != nil {
				ar.Error = a.Err.Error()
			} else {
				ar.Kind = a.Conversion.Kind.String()
				if len(a.Chain.Steps) > 1 {
					for _, st := range a.Chain.Steps {
						ar.Steps = append(ar.Steps, st.Kind.String())
					}
				}
			}
			ur.Conversions = append(ur.Conversions, ar)
		}
		rep.Units = append(rep.Units, ur)
	}
	rep.Errors = dm.GetErrorCount()
	rep.Warnings = dm.GetWarningCount()
	rep.Summary = dm.FormatSummary()
	if dm.HasErrors() {
		rep.Failed = true
	}
	return rep
}

func toDiagReport(d diagnostics.Diagnostic) diagReport {
	dr := diagReport{
		Code:      d.Code(),
		Kind:      d.Kind.String(),
		Level:     d.Level.String(),
		Message:   d.Message,
		Positions: d.Positions,
	}
	if site := d.Site(); site.IsValid() {
		dr.Site = site.String()
	}
	return dr
}

func (rep *report) writeText(w io.Writer) {
	for _, ur := range rep.Units {
		fmt.Fprintf(w, "unit %s\n", ur.Name)
		for _, dr := range ur.Declarations {
			if dr.Error != "" {
				fmt.Fprintf(w, "  %s (%s): error: %s\n", dr.ID, dr.Site, dr.Error)
				continue
			}
			fmt.Fprintf(w, "  %s (%s): %s\n", dr.ID, dr.Site, dr.Type)
			fmt.Fprintf(w, "    underlying: %s\n", dr.Underlying)
			for _, m := range dr.Members {
				fmt.Fprintf(w, "    member %s\n", m)
			}
			for _, dg := range dr.Diagnostics {
				site := dg.Site
				if site == "" {
					site = dr.Site
				}
				fmt.Fprintf(w, "    %s: %s[%s] %s: %s\n", site, dg.Level, dg.Code, dg.Kind, dg.Message)
			}
		}
		for _, ar := range ur.Conversions {
			kind := ar.Kind
			if len(ar.Steps) > 0 {
				kind += " [" + strings.Join(ar.Steps, ", ") + "]"
			}
			switch {
			case ar.Error != "":
				fmt.Fprintf(w, "  %s: error: %s\n", ar.path(), ar.Error)
			case ar.Allowed:
				fmt.Fprintf(w, "  %s: %s\n", ar.path(), kind)
			default:
				fmt.Fprintf(w, "  %s: %s (not allowed)\n", ar.path(), kind)
			}
		}
	}
	fmt.Fprintln(w, rep.Summary)
}
