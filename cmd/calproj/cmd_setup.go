package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"calproj/pkg/manifest"
	"calproj/pkg/project"
	"calproj/pkg/scaffold"
	"calproj/pkg/settings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// setupOptions are the resolved inputs for one setup invocation.
// Unspecified counts fall back to calproj.yaml defaults, then to the
// built-in defaults; GroupsSet/RecordingsSet mark counts that were
// given explicitly, so an explicit 0 is rejected rather than
// silently replaced.
type setupOptions struct {
	Name       string
	BaseDir    string
	Groups     int
	Recordings int
	GroupNames []string

	GroupsSet     bool
	RecordingsSet bool
}

// newSetupCmd creates the "calproj setup" subcommand.
func newSetupCmd() *cobra.Command {
	var opts setupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Scaffold a new project directory tree",
		Long: `Creates the standardized directory tree for a calcium imaging
project: one folder per group, one per recording, and the five data
subfolders (raw, metadata, processed, analysis, figures) in each
recording, plus placeholder README files and a session.toml metadata
template. Writes the config.json manifest at the project root.

Re-running setup on an existing tree is safe: existing directories
and edited placeholder files are left untouched.

When --name is not given and stdin is a terminal, the parameters are
prompted interactively with defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.GroupsSet = cmd.Flags().Changed("groups")
			opts.RecordingsSet = cmd.Flags().Changed("recordings")
			interactive := opts.Name == "" && isatty.IsTerminal(os.Stdin.Fd())
			return runSetup(cmd.OutOrStdout(), os.Stdin, interactive, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "project name (becomes the root directory name)")
	cmd.Flags().StringVar(&opts.BaseDir, "dir", ".", "base directory to create the project in")
	cmd.Flags().IntVar(&opts.Groups, "groups", 0, "number of groups (default 2)")
	cmd.Flags().IntVar(&opts.Recordings, "recordings", 0, "recordings per group (default 2)")
	cmd.Flags().StringSliceVar(&opts.GroupNames, "group-names", nil, "explicit group names (overrides --groups)")

	return cmd
}

// runSetup is the core setup logic, separated for testability.
func runSetup(w io.Writer, in io.Reader, interactive bool, opts setupOptions) error {
	cfg, err := settings.Load(opts.BaseDir)
	if err != nil {
		return err
	}
	if opts.Groups == 0 && !opts.GroupsSet {
		opts.Groups = cfg.DefaultGroups
	}
	if opts.Recordings == 0 && !opts.RecordingsSet {
		opts.Recordings = cfg.DefaultRecordings
	}

	if interactive {
		if err := promptSetup(in, w, &opts); err != nil {
			return err
		}
	}

	p, err := project.Build(project.Options{
		Name:       opts.Name,
		BaseDir:    opts.BaseDir,
		Groups:     opts.Groups,
		Recordings: opts.Recordings,
		GroupNames: opts.GroupNames,
	})
	if err != nil {
		return err
	}

	res, err := scaffold.Materialize(p)
	if err != nil {
		return err
	}

	m, err := manifest.FromProject(p)
	if err != nil {
		return err
	}
	if err := manifest.Write(p.Root, m); err != nil {
		return err
	}

	recordings := 0
	for _, g := range p.Groups {
		recordings += len(g.Recordings)
	}

	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Project structure created at: %s", p.Root)))
	fmt.Fprintf(w, "  groups:      %d\n", len(p.Groups))
	fmt.Fprintf(w, "  recordings:  %d\n", recordings)
	fmt.Fprintf(w, "  directories: %d created, %d existing\n", res.DirsCreated, res.DirsExisting)
	fmt.Fprintf(w, "  files:       %d written, %d kept\n", res.FilesWritten, res.FilesKept)
	fmt.Fprintf(w, "Configuration saved in: %s\n", filepath.Join(m.ProjectRoot, manifest.FileName))
	return nil
}

// promptSetup fills in opts interactively, mirroring the flag
// defaults.
func promptSetup(in io.Reader, w io.Writer, opts *setupOptions) error {
	r := bufio.NewReader(in)

	opts.Name = promptString(r, w, "Enter project directory name", "calcium_project")

	groups, err := promptInt(r, w, "How many groups?", opts.Groups)
	if err != nil {
		return err
	}
	opts.Groups = groups

	var names []string
	for i := 1; i <= groups; i++ {
		def := fmt.Sprintf("group_%02d", i)
		name := promptString(r, w, fmt.Sprintf("Enter name for group %d", i), def)
		names = append(names, strings.TrimSpace(name))
	}
	opts.GroupNames = names

	recordings, err := promptInt(r, w, "How many recordings per group?", opts.Recordings)
	if err != nil {
		return err
	}
	opts.Recordings = recordings

	return nil
}
