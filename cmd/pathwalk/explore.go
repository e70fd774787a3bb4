package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pathwalk/pathwalk"
	"github.com/pathwalk/pathwalk/frontend/golang"
	"github.com/pathwalk/pathwalk/z3"
	"gopkg.in/yaml.v3"
)

// ExploreCommand represents a command for exploring a function's paths.
type ExploreCommand struct{}

// NewExploreCommand returns a new instance of ExploreCommand.
func NewExploreCommand() *ExploreCommand {
	return &ExploreCommand{}
}

// Run executes the "explore" subcommand.
func (cmd *ExploreCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pathwalk-explore", flag.ContinueOnError)
	fnName := fs.String("fn", "", "function to explore (required)")
	configPath := fs.String("config", "", "budget config file")
	searcherName := fs.String("searcher", "dfs", "search order (dfs or bfs)")
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if *fnName == "" {
		return fmt.Errorf("function name required")
	} else if fs.NArg() == 0 {
		return fmt.Errorf("package required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many packages specified")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	budget := pathwalk.DefaultBudget()
	if *configPath != "" {
		var err error
		if budget, err = loadBudget(*configPath); err != nil {
			return err
		}
	}

	// Lower every function in the package so calls can be inlined.
	decls, err := golang.LoadFuncs(fs.Arg(0))
	if err != nil {
		return err
	}

	prog := pathwalk.NewProgram()
	var fn *pathwalk.Func
	for _, decl := range decls {
		built, err := pathwalk.BuildFunc(decl)
		if err != nil {
			return err
		}
		prog.Add(built)
		if built.Name == *fnName {
			fn = built
		}
	}
	if fn == nil {
		return fmt.Errorf("function not found: %s", *fnName)
	}
	log.Printf("[explore] loaded %d functions", len(decls))

	solver := z3.NewSolver()
	defer solver.Close()
	if budget.SolverTimeout > 0 {
		solver.Timeout = budget.SolverTimeout
	}

	e := pathwalk.NewExplorer(prog, fn)
	e.Budget = budget
	e.Solver = solver
	opts := golang.Options()
	opts.Features = budget.Features
	e.Translator = pathwalk.NewTranslator(opts)
	if *verbose {
		e.LogOutput = os.Stderr
	}
	switch *searcherName {
	case "dfs":
		e.Searcher = pathwalk.NewDFSSearcher()
	case "bfs":
		e.Searcher = pathwalk.NewBFSSearcher()
	default:
		return fmt.Errorf("unknown searcher: %s", *searcherName)
	}

	batch, err := e.Explore(ctx)
	if err != nil {
		return err
	}
	log.Printf("[explore] %d paths, %d checks in %s", len(batch.Paths), solver.Stats().CheckN, batch.Elapsed)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")
	return enc.Encode(batch)
}

func (cmd *ExploreCommand) usage() {
	fmt.Fprintln(os.Stderr, `
Explore enumerates the feasible paths of a single function with all
parameters treated as symbolic inputs, and prints one record per path
as JSON.

Usage:

	pathwalk explore -fn NAME [arguments] package

Arguments:

	-fn NAME
	    Name of the function to explore. Required.

	-config PATH
	    YAML budget configuration.

	-searcher NAME
	    Path discovery order: dfs (default) or bfs.

	-v
	    Verbose logging.
`[1:])
}

// budgetConfig is the YAML form of a pathwalk.Budget.
type budgetConfig struct {
	MaxDepth      int           `yaml:"max_depth"`
	MaxLoopIters  int           `yaml:"max_loop_iters"`
	MaxPaths      int           `yaml:"max_paths"`
	Timeout       time.Duration `yaml:"timeout"`
	SolverTimeout time.Duration `yaml:"solver_timeout"`
	Features      []string      `yaml:"features"`
}

// loadBudget reads a budget from a YAML file. Absent fields keep their
// defaults.
func loadBudget(path string) (pathwalk.Budget, error) {
	budget := pathwalk.DefaultBudget()

	buf, err := os.ReadFile(path)
	if err != nil {
		return budget, err
	}

	config := budgetConfig{
		MaxDepth:      budget.MaxDepth,
		MaxLoopIters:  budget.MaxLoopIters,
		MaxPaths:      budget.MaxPaths,
		Timeout:       budget.Timeout,
		SolverTimeout: budget.SolverTimeout,
	}
	if err := yaml.Unmarshal(buf, &config); err != nil {
		return budget, fmt.Errorf("%s: %w", path, err)
	}

	budget.MaxDepth = config.MaxDepth
	budget.MaxLoopIters = config.MaxLoopIters
	budget.MaxPaths = config.MaxPaths
	budget.Timeout = config.Timeout
	budget.SolverTimeout = config.SolverTimeout

	if config.Features != nil {
		budget.Features = 0
		for _, name := range config.Features {
			switch name {
			case "seq":
				budget.Features |= pathwalk.FeatureSeq
			case "map":
				budget.Features |= pathwalk.FeatureMap
			default:
				return budget, fmt.Errorf("%s: unknown feature: %s", path, name)
			}
		}
	}
	return budget, nil
}
