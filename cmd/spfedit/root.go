package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dshills/sharedparams/internal/config"
	"github.com/dshills/sharedparams/internal/logging"
	"github.com/dshills/sharedparams/internal/recent"
	"github.com/dshills/sharedparams/internal/session"
	"github.com/dshills/sharedparams/internal/vfs"
)

// app carries what every command needs. It is built once per invocation;
// the config and logger are filled in by the root command's pre-run hook.
type app struct {
	fs     vfs.VFS
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	noColor    bool

	cfg    *config.Config
	log    *zap.Logger
	recent *recent.List
	styles styles
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "spfedit",
		Short:         "Edit shared parameter definition files",
		Long:          "spfedit reads, edits, merges and validates shared parameter definition files.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable styled output")

	root.AddCommand(
		newShowCmd(a),
		newValidateCmd(a),
		newNewCmd(a),
		newAddGroupCmd(a),
		newRenameGroupCmd(a),
		newRemoveGroupCmd(a),
		newMoveCmd(a),
		newAddParamCmd(a),
		newRemoveParamCmd(a),
		newMergeCmd(a),
		newRecentCmd(a),
		newTypesCmd(a),
	)
	return root
}

func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(a.fs, path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.log = logger.Named("spfedit")

	a.recent = recent.New(a.fs, cfg.Recent.Path,
		recent.WithLimit(cfg.Recent.Limit),
		recent.WithSharedFilter(cfg.Recent.FilterShared),
	)
	a.styles = newStyles(!a.noColor && isTerminal(a.out))

	a.log.Debug("configured",
		zap.String("config", path),
		zap.String("recent", cfg.Recent.Path),
	)
	return nil
}

func (a *app) sessionOptions() []session.Option {
	return []session.Option{
		session.WithLogger(a.log),
		session.WithRecorder(a.recent),
		session.WithMergeGroupName(a.cfg.Merge.GroupName),
		session.WithTextInfo(a.cfg.TextInfo()),
	}
}

// open starts a session for commands that only look. ReadOnly then
// reports the file's own state.
func (a *app) open(path string) (*session.Session, error) {
	return session.Open(a.fs, path, a.sessionOptions()...)
}

// saveTarget holds the flags shared by commands that change a file.
type saveTarget struct {
	out       string
	overwrite bool
}

func (t *saveTarget) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.out, "out", "o", "", "write the result to this file instead of the input")
	cmd.Flags().BoolVar(&t.overwrite, "overwrite", false, "replace an existing --out file")
}

// edit opens path, applies fn and saves the result either back to path or
// to the --out target. Nothing is written when fn fails.
func (a *app) edit(path string, target saveTarget, fn func(*session.Session) error, opts ...session.Option) error {
	s, err := session.Open(a.fs, path, append(a.sessionOptions(), opts...)...)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if !s.Dirty() && target.out == "" {
		return nil
	}
	if target.out != "" {
		return s.SaveAs(target.out, target.overwrite)
	}
	return s.Save()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
