package cli

import (
	"fmt"
	"time"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/config"
	"bdsp-batch-editor/internal/export"
	"bdsp-batch-editor/internal/filewalker"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/watch"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func detectCmd(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "detect <folder>",
		Short: "Find masterdatas containers in a ROMFS dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g); err != nil {
				return err
			}
			return runDetect(args[0], all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every container file below the folder, not just the ROMFS ones")
	return cmd
}

func runDetect(folder string, all bool) error {
	if all {
		entries, err := filewalker.NewWalker().Walk(folder)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-22s %s\n", e.Family.Name, e.Path)
		}
		return nil
	}

	det, err := filewalker.Detect(folder)
	if err != nil {
		return err
	}
	for _, f := range catalog.Families {
		p, ok := det.Path(f.Name)
		if !ok {
			fmt.Printf("%-36s not found\n", f.DisplayName)
			continue
		}
		fmt.Printf("%-36s %s\n", f.DisplayName, p)
	}
	log.Info().Strs("roots", det.Roots).Int("found", det.Found()).Msg("Detected ROMFS files")
	return nil
}

type exportFlags struct {
	mode       string
	out        string
	workspaces map[string]string
	s3         bool
}

func exportCmd(g *globalFlags) *cobra.Command {
	var ef exportFlags
	cmd := &cobra.Command{
		Use:   "export <romfs-folder>",
		Short: "Export edited containers as single files or as a ROMFS tree",
		Long: `Rebuilds the containers found in a ROMFS dump from their edited workspaces.
Workspaces are given per family, for example --workspace masterdatas=/tmp/bdsp_editor_123.
In romfs mode families without a workspace are copied unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(g, args[0], ef)
		},
	}
	cmd.Flags().StringVar(&ef.mode, "mode", "", "single or romfs (default: BDSP_EXPORT_MODE)")
	cmd.Flags().StringVarP(&ef.out, "out", "o", "", "Output directory (default: BDSP_OUTPUT_DIR or ./"+export.OutputFolder+")")
	cmd.Flags().StringToStringVar(&ef.workspaces, "workspace", nil, "Edited workspace per family")
	cmd.Flags().BoolVar(&ef.s3, "s3", false, "Upload the ROMFS tree to the BDSP_S3_* bucket instead of a directory")
	return cmd
}

func runExport(g *globalFlags, folder string, ef exportFlags) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	modeName := ef.mode
	if modeName == "" {
		modeName = cfg.ExportMode
	}
	mode, err := export.ParseMode(modeName)
	if err != nil {
		return err
	}
	out := ef.out
	if out == "" {
		out = cfg.OutputDir
	}
	if out == "" {
		out = export.OutputFolder
	}

	for name := range ef.workspaces {
		if _, ok := catalog.Lookup(name); !ok {
			return fmt.Errorf("unknown family %q in --workspace", name)
		}
	}

	det, err := filewalker.Detect(folder)
	if err != nil {
		return err
	}

	var jobs []export.Job
	var modified []string
	for _, f := range catalog.Families {
		src, ok := det.Path(f.Name)
		if !ok {
			continue
		}
		job := export.Job{Family: f, Source: src}
		if root, ok := ef.workspaces[f.Name]; ok {
			ws, err := roundtrip.OpenWorkspace(src, root)
			if err != nil {
				return fmt.Errorf("open %s workspace: %w", f.Name, err)
			}
			defer ws.Close()
			job.Workspace = ws
			modified = append(modified, f.Name)
		}
		jobs = append(jobs, job)
	}
	log.Info().Msg(export.Summary(mode, det.Found(), modified))

	exporter := export.NewExporter(roundtrip.NewRebuilder(roundtrip.WithTempRoot(cfg.WorkDir)), cfg.WorkerCount, cfg.WorkDir)
	if mode == export.ModeSingle {
		for _, j := range jobs {
			if !j.Modified() {
				continue
			}
			res, err := exporter.ExportSingle(ctx, j.Workspace, out)
			if err != nil {
				return err
			}
			fmt.Println(res.Location)
			return nil
		}
		return fmt.Errorf("export single file: no --workspace given for a detected family")
	}

	var sink export.Sink = export.DirSink{Root: out}
	if ef.s3 {
		if sink, err = newS3Sink(cfg); err != nil {
			return err
		}
	}
	results, err := exporter.ExportROMFS(ctx, jobs, sink)
	if err != nil {
		return err
	}
	for _, r := range results {
		state := "copied"
		if r.Modified {
			state = "rebuilt"
		}
		fmt.Printf("%-8s %-10s %s\n", state, humanize.Bytes(uint64(r.Size)), r.Location)
	}
	return nil
}

func newS3Sink(cfg *config.Config) (*export.S3Sink, error) {
	return export.NewS3Sink(export.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Prefix:    cfg.S3Prefix,
		UseSSL:    cfg.S3UseSSL,
	})
}

func watchCmd(g *globalFlags) *cobra.Command {
	var root, family string
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <container> <dest>",
		Short: "Rebuild a container every time its extracted files are saved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(g, args[0], args[1], root, family, debounce)
		},
	}
	cmd.Flags().StringVar(&root, "workspace", "", "Watch a workspace kept by extract (default: extract a new one)")
	cmd.Flags().StringVar(&family, "family", "", "Container family (default: guessed from the container path)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before rebuilding")
	return cmd
}

func runWatch(g *globalFlags, src, dest, root, familyName string, debounce time.Duration) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	f, err := resolveFamily(familyName, src)
	if err != nil {
		return err
	}
	opts := interestOptions(cfg, f, nil)

	var ws *roundtrip.Workspace
	if root != "" {
		ws, err = roundtrip.OpenWorkspace(src, root)
	} else {
		ws, err = roundtrip.NewExtractor(opts...).Extract(ctx, src)
		if err == nil {
			ws.Keep()
			fmt.Println(ws.Root)
		}
	}
	if err != nil {
		return err
	}
	defer ws.Close()

	w := &watch.Watcher{
		Workspace: ws,
		Rebuilder: roundtrip.NewRebuilder(append(opts, roundtrip.WithSkipUnchanged(true))...),
		Dest:      dest,
		Debounce:  debounce,
		OnRebuild: func(r *roundtrip.RebuildReport, err error) {
			if err == nil {
				fmt.Printf("Rebuilt %s: %d replaced\n", r.Destination, r.Replaced)
			}
		},
	}
	return w.Run(ctx)
}
