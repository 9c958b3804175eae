package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/numtide/changefmt/changes"
	"github.com/numtide/changefmt/config"
	"github.com/numtide/changefmt/expr"
	"github.com/numtide/changefmt/journal"
	"github.com/numtide/changefmt/option"
	"github.com/numtide/changefmt/pipeline"
	"github.com/numtide/changefmt/scm"
	"github.com/numtide/changefmt/stats"
	"github.com/numtide/changefmt/tool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/expand"
)

func Run(v *viper.Viper, statz *stats.Stats, cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.History > 0 {
		return history(cfg, cmd.OutOrStdout())
	}

	// build the environment expressions and tool lookups are evaluated against
	project, err := cfg.ExprProject()
	if err != nil {
		return fmt.Errorf("failed to describe project: %w", err)
	}

	env, err := project.Environ(os.Environ())
	if err != nil {
		return fmt.Errorf("failed to build run context: %w", err)
	}

	// the config has been validated at this point
	diffType, _ := scm.TypeString(cfg.Diff.Type)
	policy, _ := option.ParseEmptyPolicy(cfg.EmptyValues)

	bag, err := cfg.Bag()
	if err != nil {
		return fmt.Errorf("failed to declare options: %w", err)
	}

	producer, err := scm.New(diffType, cfg.Project.Root, scm.Options{
		Baseline: cfg.Diff.Baseline,
		Command:  cfg.Diff.Command,
		Env: func(name string) string {
			return env.Get(name).String()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialise diff: %w", err)
	}

	resolver, err := changes.NewResolver(
		osfs.New(cfg.Project.Root), cfg.Project.ID, producer, cfg.Diff.Excludes, cfg.Diff.KeepArtifact, statz,
	)
	if err != nil {
		return fmt.Errorf("failed to initialise change resolution: %w", err)
	}

	formatter, sorter, err := tools(cfg, env, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p := pipeline.New(resolver, option.NewMapper(expr.New(env, cfg.Strict), policy), bag, formatter, sorter, statz)

	// open the journal if configured
	var (
		j   *journal.Journal
		run *journal.Run
	)

	if !cfg.NoJournal {
		if j, err = journal.OpenProject(cfg.Project.Root); err != nil {
			// if we can't open the journal, we log a warning and carry on without it
			log.Warnf("failed to open journal: %v", err)
		} else {
			defer func() {
				if err := j.Close(); err != nil {
					log.Errorf("failed to close journal: %v", err)
				}
			}()

			run = journal.NewRun(diffType.String(), cfg.DryRun)
			p.Observe(run)
		}
	}

	// create an app context and listen for shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
		<-exit
		cancel()
	}()

	result, err := p.Run(ctx)

	if run != nil {
		if recordErr := j.Record(run.Finish(result, err)); recordErr != nil {
			log.Warnf("failed to record run: %v", recordErr)
		}
	}

	if err != nil {
		return err //nolint:wrapcheck
	}

	if !cfg.Quiet {
		statz.Print(cmd.OutOrStdout())
	}

	return nil
}

//nolint:ireturn
func tools(cfg *config.Config, env expand.Environ, out io.Writer) (pipeline.Formatter, pipeline.ImportSorter, error) {
	if cfg.DryRun {
		return tool.Formatter{Applier: tool.NewPrinter("formatter", out)},
			tool.ImportSorter{Applier: tool.NewPrinter("import-sorter", out)},
			nil
	}

	formatter, err := tool.New("formatter", cfg.Project.Root, env, cfg.Formatter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise formatter: %w", err)
	}

	sorter, err := tool.New("import-sorter", cfg.Project.Root, env, cfg.ImportSorter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise import sorter: %w", err)
	}

	return tool.Formatter{Applier: formatter}, tool.ImportSorter{Applier: sorter}, nil
}

func history(cfg *config.Config, out io.Writer) error {
	j, err := journal.OpenProject(cfg.Project.Root)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := j.Close(); err != nil {
			log.Errorf("failed to close journal: %v", err)
		}
	}()

	entries, err := j.Last(cfg.History)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "no runs recorded for %s\n", cfg.Project.Root)

		return nil
	}

	for _, entry := range entries {
		entry.Print(out)
	}

	return nil
}
