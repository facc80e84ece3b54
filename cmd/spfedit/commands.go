package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/sharedparams/internal/codec"
	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/merge"
	"github.com/dshills/sharedparams/internal/recent"
	"github.com/dshills/sharedparams/internal/session"
	"github.com/dshills/sharedparams/internal/watcher"
)

var errNoGroups = errors.New("file has no groups; add one with add-group first")

func newShowCmd(a *app) *cobra.Command {
	var opts showOptions
	var group string

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the groups and parameters of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if group != "" {
				id, err := parseGroupID(group)
				if err != nil {
					return err
				}
				opts.group = id
			}
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			if opts.group != 0 && !s.Document().HasGroup(opts.group) {
				return &definition.GroupError{ID: opts.group, Err: definition.ErrGroupNotFound}
			}
			return writeDocument(a.out, a.styles, s, opts)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "only show this group id")
	cmd.Flags().BoolVar(&opts.guids, "guids", false, "include parameter GUIDs")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check that files parse and are consistent",
		Long: "validate parses each file and checks group ids and parameter references.\n" +
			"With --watch it keeps running and re-checks a file whenever it changes.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var first error
			for _, path := range args {
				if err := a.validate(path); err != nil && first == nil {
					first = err
				}
			}
			if !watch {
				return first
			}
			return a.watchValidate(cmd, args)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-validate files when they change")
	return cmd
}

// validate checks one file and prints the verdict.
func (a *app) validate(path string) error {
	doc, err := codec.Load(a.fs, path)
	if err == nil {
		err = doc.Validate()
	}
	if err != nil {
		fmt.Fprintf(a.out, "%s %v\n", a.styles.render(a.styles.Error, "FAIL"), err)
		return err
	}
	fmt.Fprintf(a.out, "%s %s: %d groups, %d parameters\n",
		a.styles.render(a.styles.OK, "ok"), path, doc.NumGroups(), doc.NumParameters())
	return nil
}

func (a *app) watchValidate(cmd *cobra.Command, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(
		watcher.WithDebounce(a.cfg.Watch.Debounce.Duration),
		watcher.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range paths {
		abs, err := a.fs.Abs(path)
		if err != nil {
			return err
		}
		if err := w.Add(abs); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	fmt.Fprintln(a.errOut, a.styles.render(a.styles.Muted, "watching for changes; press Ctrl-C to stop"))
	err = watcher.Run(ctx, w, func(ev watcher.Event) {
		if ev.Op.Gone() {
			fmt.Fprintf(a.out, "%s %s: file removed\n", a.styles.render(a.styles.Error, "GONE"), ev.Path)
			return
		}
		_ = a.validate(ev.Path)
	}, func(err error) {
		a.log.Warn("watch error", zap.Error(err))
	})
	if errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func newNewCmd(a *app) *cobra.Command {
	var group string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "new FILE",
		Short: "Create an empty definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if a.fs.Exists(path) && !overwrite {
				return &codec.IoError{Op: "new", Path: path, Err: codec.ErrTargetExists}
			}
			s := session.New(a.fs, path, a.sessionOptions()...)
			if group != "" {
				g := s.Document().AddGroup(group)
				fmt.Fprintf(a.out, "added group %d %s\n", g.ID, g.Name)
			}
			if err := s.Save(); err != nil {
				return err
			}
			if err := a.recent.Add(s.Path()); err != nil {
				a.log.Warn("could not update recent files", zap.Error(err))
			}
			fmt.Fprintf(a.out, "created %s\n", s.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "create a first group with this name")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	return cmd
}

func newAddGroupCmd(a *app) *cobra.Command {
	var target saveTarget

	cmd := &cobra.Command{
		Use:   "add-group FILE NAME",
		Short: "Add a parameter group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(args[0], target, func(s *session.Session) error {
				if err := checkName("group name", args[1]); err != nil {
					return err
				}
				g := s.Document().AddGroup(args[1])
				fmt.Fprintf(a.out, "added group %d %s\n", g.ID, g.Name)
				return nil
			})
		},
	}
	target.register(cmd)
	return cmd
}

func newRenameGroupCmd(a *app) *cobra.Command {
	var target saveTarget

	cmd := &cobra.Command{
		Use:   "rename-group FILE ID NAME",
		Short: "Rename a parameter group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[1])
			if err != nil {
				return err
			}
			if err := checkName("group name", args[2]); err != nil {
				return err
			}
			return a.edit(args[0], target, func(s *session.Session) error {
				if err := s.Document().RenameGroup(id, args[2]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "renamed group %d to %s\n", id, args[2])
				return nil
			})
		},
	}
	target.register(cmd)
	return cmd
}

func newRemoveGroupCmd(a *app) *cobra.Command {
	var target saveTarget

	cmd := &cobra.Command{
		Use:   "remove-group FILE ID",
		Short: "Remove an empty parameter group",
		Long: "remove-group removes a group that no parameter references.\n" +
			"Move its parameters elsewhere with move-params first.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[1])
			if err != nil {
				return err
			}
			return a.edit(args[0], target, func(s *session.Session) error {
				if err := s.Document().RemoveGroup(id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "removed group %d\n", id)
				return nil
			})
		},
	}
	target.register(cmd)
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	var target saveTarget

	cmd := &cobra.Command{
		Use:   "move-params FILE FROM TO",
		Short: "Move every parameter of one group to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseGroupID(args[1])
			if err != nil {
				return err
			}
			to, err := parseGroupID(args[2])
			if err != nil {
				return err
			}
			return a.edit(args[0], target, func(s *session.Session) error {
				n, err := s.Document().ReassignGroup(from, to)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "moved %d parameters from group %d to group %d\n", n, from, to)
				return nil
			})
		},
	}
	target.register(cmd)
	return cmd
}

// paramFlags holds the optional attributes of add-param.
type paramFlags struct {
	group       string
	guid        string
	description string
	category    string
	hidden      bool
	locked      bool
	hideEmpty   bool
}

func newAddParamCmd(a *app) *cobra.Command {
	var target saveTarget
	var f paramFlags

	cmd := &cobra.Command{
		Use:   "add-param FILE NAME TYPE",
		Short: "Add a shared parameter",
		Long: "add-param adds a parameter to a group. Without --group it goes to the\n" +
			"group with the smallest id. Run 'spfedit types' for the TYPE names.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, group, err := f.parameter(args[1], args[2])
			if err != nil {
				return err
			}
			return a.edit(args[0], target, func(s *session.Session) error {
				doc := s.Document()
				if doc.NumGroups() == 0 {
					return errNoGroups
				}
				if group != 0 && !doc.HasGroup(group) {
					return &definition.GroupError{ID: group, Err: definition.ErrGroupNotFound}
				}
				p.Group = group
				added := doc.AddParameter(p)
				fmt.Fprintf(a.out, "added %s (%s) to group %d as %s\n", added.Name, added.Type, added.Group, added.GUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&f.group, "group", "g", "", "group id (default: smallest id)")
	cmd.Flags().StringVar(&f.guid, "guid", "", "use this GUID instead of a new one")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "tooltip description")
	cmd.Flags().StringVar(&f.category, "category", "", "data category")
	cmd.Flags().BoolVar(&f.hidden, "hidden", false, "make the parameter invisible")
	cmd.Flags().BoolVar(&f.locked, "locked", false, "prevent users from editing the value")
	cmd.Flags().BoolVar(&f.hideEmpty, "hide-when-empty", false, "hide the parameter when it has no value")
	target.register(cmd)
	return cmd
}

func (f paramFlags) parameter(name, typ string) (definition.Parameter, int, error) {
	if err := checkName("parameter name", name); err != nil {
		return definition.Parameter{}, 0, err
	}
	t, err := definition.ParseType(typ)
	if err != nil {
		return definition.Parameter{}, 0, err
	}
	if strings.ContainsAny(f.description+f.category, "\t\r\n") {
		return definition.Parameter{}, 0, errors.New("description and category must not contain tabs or line breaks")
	}

	p := definition.NewParameter(name, t)
	p.Description = f.description
	p.DataCategory = f.category
	p.Visible = !f.hidden
	p.UserModifiable = !f.locked
	p.HideWhenNoValue = f.hideEmpty

	if f.guid != "" {
		id, err := uuid.Parse(f.guid)
		if err != nil {
			return definition.Parameter{}, 0, fmt.Errorf("invalid GUID %q: %w", f.guid, err)
		}
		p.GUID = id
	}

	var group int
	if f.group != "" {
		if group, err = parseGroupID(f.group); err != nil {
			return definition.Parameter{}, 0, err
		}
	}
	return p, group, nil
}

func newRemoveParamCmd(a *app) *cobra.Command {
	var target saveTarget
	var all bool

	cmd := &cobra.Command{
		Use:   "remove-param FILE NAME",
		Short: "Remove a parameter by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return a.edit(args[0], target, func(s *session.Session) error {
				doc := s.Document()
				matches := doc.FindParameters(name)
				switch {
				case len(matches) == 0:
					return fmt.Errorf("parameter %q: %w", name, definition.ErrParameterNotFound)
				case len(matches) > 1 && !all:
					return fmt.Errorf("%d parameters are named %q; pass --all to remove them all", len(matches), name)
				}
				// Remove from the back so earlier indexes stay valid.
				for i := len(matches) - 1; i >= 0; i-- {
					p, err := doc.RemoveParameter(matches[i])
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "removed %s (%s)\n", p.Name, p.GUID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every parameter with the name")
	target.register(cmd)
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var target saveTarget
	var groupName string
	var yamlSource bool

	cmd := &cobra.Command{
		Use:   "merge FILE SOURCE",
		Short: "Add the parameters of SOURCE to FILE under a new group",
		Long: "merge copies every parameter of SOURCE into FILE under one newly created group.\n" +
			"SOURCE is a definition file, or a YAML bundle when it ends in .yaml or .yml\n" +
			"or --yaml is given.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[1]
			if groupName != "" {
				if err := checkName("group name", groupName); err != nil {
					return err
				}
			}
			return a.edit(args[0], target, func(s *session.Session) error {
				var res merge.Result
				var err error
				if yamlSource || isYAML(source) {
					res, err = a.mergeYAML(s, source)
				} else {
					res, err = s.MergeFile(source)
				}
				if err != nil {
					return err
				}
				if res.Added == 0 {
					fmt.Fprintln(a.out, "nothing to merge")
					return nil
				}
				fmt.Fprintf(a.out, "merged %d parameters into group %d %s\n", res.Added, res.Group.ID, res.Group.Name)
				return nil
			}, mergeGroupOption(groupName)...)
		},
	}
	cmd.Flags().StringVar(&groupName, "group-name", "", "name of the created group (default from config)")
	cmd.Flags().BoolVar(&yamlSource, "yaml", false, "read SOURCE as a YAML bundle")
	target.register(cmd)
	return cmd
}

func mergeGroupOption(name string) []session.Option {
	if name == "" {
		return nil
	}
	return []session.Option{session.WithMergeGroupName(name)}
}

func (a *app) mergeYAML(s *session.Session, path string) (merge.Result, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return merge.Result{}, fmt.Errorf("read bundle %s: %w", path, err)
	}
	bundle, err := merge.LoadYAMLBundle(bytes.NewReader(data))
	if err != nil {
		return merge.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return s.Merge(bundle)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func newRecentCmd(a *app) *cobra.Command {
	var clearAll, all, pathsOnly bool
	var forget string

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case clearAll:
				return a.recent.Clear()
			case forget != "":
				return a.recent.Remove(forget)
			}

			list := a.recent
			if all {
				list = recent.New(a.fs, a.cfg.Recent.Path, recent.WithLimit(a.cfg.Recent.Limit))
			}
			if pathsOnly {
				return printPaths(a.out, list)
			}
			entries, err := list.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, a.styles.render(a.styles.Muted, "no recent files"))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "%s  %s\n", a.styles.render(a.styles.Muted, e.Opened.Local().Format("2006-01-02 15:04")), e.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "forget every file")
	cmd.Flags().StringVar(&forget, "remove", "", "forget one file")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include files whose names do not mention shared")
	cmd.Flags().BoolVar(&pathsOnly, "paths", false, "print bare paths, one per line")
	return cmd
}

// printPaths writes each path from src on its own line, newest first.
func printPaths(w io.Writer, src recent.Source) error {
	paths, err := src.Paths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	return nil
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List parameter type names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range definition.Types() {
				fmt.Fprintln(a.out, t)
			}
			return nil
		},
	}
}

func checkName(label, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s must not be empty", label)
	}
	if strings.ContainsAny(name, "\t\r\n") {
		return fmt.Errorf("%s must not contain tabs or line breaks", label)
	}
	return nil
}
