package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/config"
	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/roster"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/textcodec"
	"bdsp-batch-editor/internal/transform"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// levelFlags are shared by the commands that read the trainer table.
type levelFlags struct {
	workspace string
	ids       []int64
	minLevel  int64
	maxLevel  int64
	minSet    bool
	maxSet    bool
}

func (f *levelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "Use a workspace kept by extract instead of extracting again")
	cmd.Flags().Int64SliceVar(&f.ids, "ids", nil, "Trainer ids to change (default: all)")
	cmd.Flags().Int64Var(&f.minLevel, "min", 0, "Lowest allowed level (default: BDSP_MIN_LEVEL)")
	cmd.Flags().Int64Var(&f.maxLevel, "max", 0, "Highest allowed level (default: BDSP_MAX_LEVEL)")
}

// parsed records which bounds were given on the command line.
func (f *levelFlags) parsed(cmd *cobra.Command) {
	f.minSet = cmd.Flags().Changed("min")
	f.maxSet = cmd.Flags().Changed("max")
}

// trainerTable is the trainer Pokemon table of one workspace.
type trainerTable struct {
	ws      *roundtrip.Workspace
	path    string
	records *roster.Collection
	close   func() error
}

// openTrainerTable attaches to the workspace at root, or extracts src into
// a temporary one, and loads the trainer table from it.
func openTrainerTable(ctx context.Context, cfg *config.Config, src, root string) (*trainerTable, error) {
	t := &trainerTable{}
	if root != "" {
		ws, err := roundtrip.OpenWorkspace(src, root)
		if err != nil {
			return nil, err
		}
		t.ws, t.close = ws, ws.Close
	} else {
		session := roundtrip.NewSession(interestOptions(cfg, catalog.Masterdatas, nil)...)
		ws, err := session.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		t.ws, t.close = ws, session.Close
	}

	if err := t.load(ctx, cfg); err != nil {
		_ = t.close()
		return nil, err
	}
	return t, nil
}

func (t *trainerTable) load(ctx context.Context, cfg *config.Config) error {
	loc, err := newLocator(cfg)
	if err != nil {
		return err
	}
	p, ok, err := loc.Locate(ctx, catalog.Masterdatas.Name, catalog.TrainerTable, t.ws.Files())
	if err != nil {
		return fmt.Errorf("locate trainer table: %w", err)
	}
	if !ok {
		return errs.Wrap("locate trainer table", t.ws.ExportDir, errs.ErrNoRecords)
	}

	tree, err := textcodec.ReadFile(p)
	if err != nil {
		return err
	}
	records, err := roster.Load(tree)
	if err != nil {
		return errs.Wrap("load trainer table", p, err)
	}
	if err := records.Validate(); err != nil {
		return errs.Wrap("load trainer table", p, err)
	}
	t.path, t.records = p, records
	log.Debug().Str("file", p).Int("records", records.Len()).Msg("Loaded trainer table")
	return nil
}

// name is the extracted name of the table file.
func (t *trainerTable) name() string {
	return strings.TrimSuffix(filepath.Base(t.path), textcodec.Ext)
}

func (t *trainerTable) save() error {
	return textcodec.WriteFile(t.path, t.records.Tree())
}

func statsCmd(g *globalFlags) *cobra.Command {
	var lf levelFlags
	cmd := &cobra.Command{
		Use:   "stats <container>",
		Short: "Show the trainer Pokemon level distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(g, args[0], lf)
		},
	}
	cmd.Flags().StringVar(&lf.workspace, "workspace", "", "Use a workspace kept by extract instead of extracting again")
	return cmd
}

func runStats(g *globalFlags, src string, lf levelFlags) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	t, err := openTrainerTable(ctx, cfg, src, lf.workspace)
	if err != nil {
		return err
	}
	defer t.close()

	st := transform.Statistics(t.records)
	fmt.Printf("Trainers:              %s\n", humanize.Comma(int64(st.TotalRecords)))
	fmt.Printf("Trainers with Pokemon: %s\n", humanize.Comma(int64(st.RecordsWithPokemon)))
	fmt.Printf("Pokemon:               %s\n", humanize.Comma(int64(st.TotalPokemon)))
	fmt.Printf("Average per trainer:   %.2f\n", st.AveragePerRecord)
	fmt.Println("Level distribution:")
	for _, b := range st.Distribution {
		fmt.Printf("  %-8s %s\n", b.Label(), humanize.Comma(int64(b.Count)))
	}
	return nil
}

func previewCmd(g *globalFlags) *cobra.Command {
	var lf levelFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <container> <change>",
		Short: "Show what a level change would do without applying it",
		Long: `Shows the trainers a level change would affect. A change is an absolute
offset such as "+5" or "-3", or a percentage such as "+10%" or "-25%".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf.parsed(cmd)
			return runPreview(g, args[0], args[1], lf, limit)
		},
	}
	lf.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", -1, "Maximum trainers to show, 0 for all (default: BDSP_PREVIEW_LIMIT)")
	return cmd
}

func runPreview(g *globalFlags, src, change string, lf levelFlags, limit int) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	spec, err := transform.ParseSpec(change)
	if err != nil {
		return err
	}
	if limit < 0 {
		limit = cfg.PreviewLimit
	}

	t, err := openTrainerTable(ctx, cfg, src, lf.workspace)
	if err != nil {
		return err
	}
	defer t.close()

	engine := transform.NewEngine(log.Logger)
	engine.Bounds = bounds(cfg, lf)
	entries, err := engine.Preview(t.records, spec, transform.Filter(lf.ids), limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("Trainer %d\n", e.RecordID)
		for _, s := range e.Slots {
			marker := " "
			if s.Changed {
				marker = "*"
			}
			fmt.Printf("  %s slot %d  #%-4d Lv %3d -> %3d\n", marker, s.Slot, s.MonsNo, s.OldLevel, s.NewLevel)
		}
	}
	log.Info().Str("change", spec.String()).Int("trainers", len(entries)).Msg("Previewed level change")
	return nil
}

func applyCmd(g *globalFlags) *cobra.Command {
	var lf levelFlags
	var out string
	var fromOriginal bool
	cmd := &cobra.Command{
		Use:   "apply <container> <change>...",
		Short: "Apply level changes and write the result",
		Long: `Applies one or more level changes in order. With --out the container is
rebuilt to that path; with --workspace and no --out the edited table is
saved into the workspace for a later repack.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf.parsed(cmd)
			return runApply(g, args[0], args[1:], lf, out, fromOriginal)
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the rebuilt container here")
	cmd.Flags().BoolVar(&fromOriginal, "from-original", false, "Discard earlier edits in the workspace before applying")
	return cmd
}

func runApply(g *globalFlags, src string, changes []string, lf levelFlags, out string, fromOriginal bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if out == "" && lf.workspace == "" {
		return fmt.Errorf("apply: --out is required without --workspace")
	}

	t, err := openTrainerTable(ctx, cfg, src, lf.workspace)
	if err != nil {
		return err
	}
	defer t.close()

	if fromOriginal {
		ex := roundtrip.NewExtractor(interestOptions(cfg, catalog.Masterdatas, nil)...)
		if err := ex.Restore(ctx, t.ws, t.name()); err != nil {
			return err
		}
		if err := t.load(ctx, cfg); err != nil {
			return err
		}
	}

	engine := transform.NewEngine(log.Logger)
	engine.Bounds = bounds(cfg, lf)
	records := t.records
	for _, change := range changes {
		next, mod, err := engine.ApplyFromString(records, change, transform.Filter(lf.ids))
		if err != nil {
			return err
		}
		records = next
		fmt.Printf("%s: %d trainers, %d Pokemon changed\n", mod.Spec, mod.RecordsModified, mod.SlotsModified)
	}
	t.records = records

	if err := t.save(); err != nil {
		return err
	}
	if out == "" {
		log.Info().Str("workspace", t.ws.Root).Int("changes", engine.History.Len()).Msg("Saved trainer table")
		return nil
	}

	report, err := roundtrip.NewRebuilder(interestOptions(cfg, catalog.Masterdatas, nil)...).Rebuild(ctx, t.ws, out)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s)\n", report.Destination, humanize.Bytes(uint64(report.Bytes)))
	return nil
}
