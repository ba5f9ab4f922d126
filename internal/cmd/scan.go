package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peterM/HangFixer/internal/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Find workspaces whose sentinel is armed",
	Long: `Scan walks dir for workspace descriptors matching --pattern and lists
those whose sentinel is armed, i.e. whose last load never finished.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("pattern", "*.sln", "descriptor file name pattern")
	scanCmd.Flags().Bool("all", false, "list every descriptor found, armed or not")
	rootCmd.AddCommand(scanCmd)
}

// scanRow is one descriptor found by scan.
type scanRow struct {
	descriptor string
	sentinel   string
	armed      bool
	since      time.Time
}

func runScan(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	pattern, _ := cmd.Flags().GetString("pattern")
	all, _ := cmd.Flags().GetBool("all")
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var rows []scanRow
	walkErr := afero.Walk(appFS, args[0], func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if info.IsDir() {
			if path != args[0] && rt.isCacheDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, info.Name()); !ok {
			return nil
		}

		row := scanRow{descriptor: path, sentinel: rt.sentinels.Path(path)}
		if fi, err := appFS.Stat(row.sentinel); err == nil {
			row.armed = true
			row.since = fi.ModTime()
		}
		if row.armed || all {
			rows = append(rows, row)
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "no armed sentinels found")
		return nil
	}

	p := newPainter(out)
	pathWidth := 0
	if p.enabled {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 60 {
			pathWidth = (w - 40) / 2
		}
	}
	fit := func(s string) string {
		if pathWidth == 0 {
			return s
		}
		return util.TruncatePath(s, pathWidth)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Descriptor", "Sentinel", "State", "Armed Since")
	for _, r := range rows {
		state, since := p.ok("clear"), "-"
		if r.armed {
			state = p.warn("armed")
			since = r.since.Format(time.RFC3339)
		}
		table.Append(fit(r.descriptor), fit(r.sentinel), state, since)
	}
	table.Render()
	return nil
}

func (rt *runtime) isCacheDir(name string) bool {
	for _, d := range rt.cfg.Recovery.CacheDirs {
		if name == d {
			return true
		}
	}
	return false
}
