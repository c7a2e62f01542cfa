package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/container"
	"bdsp-batch-editor/internal/fsutil"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/textcodec"
	"bdsp-batch-editor/internal/textutil"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func listCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <container>",
		Short: "List the objects embedded in a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g); err != nil {
				return err
			}
			return runList(args[0])
		},
	}
}

func runList(src string) error {
	c, err := container.Open(src)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH ID\tTYPE\tSIZE\tNAME")
	var total int
	for _, obj := range c.Objects() {
		name := ""
		if tree, err := c.ReadContent(obj.PathID); err == nil {
			name = roundtrip.DeclaredName(obj, tree, c)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", obj.PathID, obj.TypeName, humanize.Bytes(uint64(obj.Size)), textutil.Truncate(name, 48))
		total += obj.Size
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	log.Info().Int("objects", c.Len()).Str("content", humanize.Bytes(uint64(total))).Msg("Listed container")
	return nil
}

func extractCmd(g *globalFlags) *cobra.Command {
	var family, workDir string
	var types []string
	cmd := &cobra.Command{
		Use:   "extract <container>",
		Short: "Extract objects to JSON files in a kept workspace",
		Long: `Extracts every object of interest to <workspace>/Export/{name}.json and
records the names in <workspace>/pathIDs/{container}_pathIDs.json. The
workspace is kept so it can be edited and passed to repack.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(g, args[0], family, workDir, types)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Container family (masterdatas or personal_masterdatas)")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Parent directory for the workspace (default: BDSP_WORK_DIR or OS temp)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Object types to extract (default: the family's)")
	return cmd
}

func runExtract(g *globalFlags, src, familyName, workDir string, types []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	f, err := resolveFamily(familyName, src)
	if err != nil {
		return err
	}

	ws, err := roundtrip.NewExtractor(interestOptions(cfg, f, types)...).Extract(ctx, src)
	if err != nil {
		return err
	}
	ws.Keep()
	defer ws.Close()

	loc, err := newLocator(cfg)
	if err != nil {
		return err
	}
	res, err := loc.Classify(ctx, f.Name, ws.Files())
	if err != nil {
		return fmt.Errorf("classify extracted files: %w", err)
	}
	for _, content := range res.Contents() {
		p, _ := res.Locate(content)
		supported := f.Supports(content)
		log.Info().
			Str("content", catalog.ContentDisplayName(content)).
			Str("file", p).
			Bool("editable", supported).
			Msg("Located content")
	}

	fmt.Println(ws.Root)
	return nil
}

func repackCmd(g *globalFlags) *cobra.Command {
	var family string
	var skipUnchanged bool
	cmd := &cobra.Command{
		Use:   "repack <container> <workspace> <dest>",
		Short: "Rebuild a container from an edited workspace",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepack(g, args[0], args[1], args[2], family, skipUnchanged)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Container family (default: guessed from the container path)")
	cmd.Flags().BoolVar(&skipUnchanged, "skip-unchanged", false, "Keep the original bytes of objects whose file was not edited")
	return cmd
}

func runRepack(g *globalFlags, src, root, dest, familyName string, skipUnchanged bool) error {
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

	ws, err := roundtrip.OpenWorkspace(src, root)
	if err != nil {
		return err
	}
	defer ws.Close()

	opts := append(interestOptions(cfg, f, nil), roundtrip.WithSkipUnchanged(skipUnchanged))
	report, err := roundtrip.NewRebuilder(opts...).Rebuild(ctx, ws, dest)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s): %d replaced, %d unchanged, %d untouched\n",
		report.Destination, humanize.Bytes(uint64(report.Bytes)), report.Replaced, report.Unchanged, report.Untouched)
	return nil
}

func resetCmd(g *globalFlags) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "reset <container> <workspace> [name...]",
		Short: "Discard edits in a workspace by re-extracting files from the container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(g, args[0], args[1], family, args[2:])
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Container family (default: guessed from the container path)")
	return cmd
}

func runReset(g *globalFlags, src, root, familyName string, names []string) error {
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

	ws, err := roundtrip.OpenWorkspace(src, root)
	if err != nil {
		return err
	}
	defer ws.Close()

	return roundtrip.NewExtractor(interestOptions(cfg, f, nil)...).Restore(ctx, ws, names...)
}

func containerCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Developer helpers for the container format",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pack <manifest.json> <dest>",
		Short: "Build a container from a JSON manifest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g); err != nil {
				return err
			}
			return runPack(args[0], args[1])
		},
	})
	return cmd
}

func runPack(manifest, dest string) error {
	tree, err := textcodec.ReadFile(manifest)
	if err != nil {
		return err
	}
	c, err := container.FromManifest(tree)
	if err != nil {
		return err
	}
	data, err := c.Serialize(c.Packer())
	if err != nil {
		return fmt.Errorf("pack container: %w", err)
	}
	if err := fsutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	log.Info().Str("dest", dest).Int("objects", c.Len()).Str("size", humanize.Bytes(uint64(len(data)))).Msg("Packed container")
	return nil
}
