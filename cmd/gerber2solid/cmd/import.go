package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/configurator"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerber2solid"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/plotter"
	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/render"
)

var importCmd = &cobra.Command{
	Use:   "import <gerber_file>...",
	Short: "Import Gerber layers and write the outputs",
	Long: `Imports every file, prints the warnings and the statistic and writes
the requested outputs. Several layers go to one STL file (one solid per
layer) and one PDF file (one page per layer). A PNG preview is written
per layer.

The layer kind comes from the extension: gtl/gbl copper, gts/gbs
soldermask, gto/gbo silkscreen, each with its own thickness. Drill
files (drl) are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	f := importCmd.Flags()
	f.Float64("thickness", 0.035, "copper thickness, mm")
	f.Float64("soldermask-thickness", 0.025, "soldermask thickness (gts, gbs), mm")
	f.Float64("silkscreen-thickness", 0.020, "silkscreen thickness (gto, gbo), mm")
	f.Float64("arc-tolerance", 0.01, "max chord deviation relative to the radius")
	f.Bool("strict", false, "fail on unsupported apertures")
	f.String("units", "mm", "output units: mm or inch")
	f.Int("workers", 4, "files imported in parallel")
	f.String("stl", "", "STL output file")
	f.String("pdf", "", "PDF output file")
	f.String("png", "", "PNG preview file")

	bind := map[string]string{
		"thickness":            configurator.CfgGeometryThickness,
		"soldermask-thickness": configurator.CfgGeometrySoldermaskThickness,
		"silkscreen-thickness": configurator.CfgGeometrySilkscreenThickness,
		"arc-tolerance":        configurator.CfgGeometryArcTolerance,
		"strict":               configurator.CfgParserStrictApertures,
		"units":                configurator.CfgOutputUnits,
		"workers":              configurator.CfgImportWorkers,
		"stl":                  configurator.CfgOutputSTLFile,
		"pdf":                  configurator.CfgOutputPDFFile,
		"png":                  configurator.CfgRenderOutFile,
	}
	for name, key := range bind {
		if err := viperConfig.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	timeStamp := time.Now()
	cfg, err := gerber2solid.ConfigFromViper(viperConfig)
	if err != nil {
		return err
	}

	jobs := gerber2solid.ImportFiles(cmd.Context(), args, cfg, viperConfig.GetInt(configurator.CfgImportWorkers))
	done := make([]gerber2solid.Job, 0, len(jobs))
	failed := 0
	for _, job := range jobs {
		report(cmd.OutOrStdout(), &job)
		switch {
		case job.Err != nil:
			failed++
		case !job.Skipped:
			done = append(done, job)
		}
	}

	if path := viperConfig.GetString(configurator.CfgOutputSTLFile); path != "" {
		err := plotter.WriteFile(path, func(w io.Writer) error {
			return buildAll(plotter.NewSTLWriter(w), done)
		})
		if err != nil {
			return err
		}
	}
	if path := viperConfig.GetString(configurator.CfgOutputPDFFile); path != "" {
		err := plotter.WriteFile(path, func(w io.Writer) error {
			pw := plotter.NewPDFWriter(w)
			if err := buildAll(pw, done); err != nil {
				return err
			}
			return pw.Close()
		})
		if err != nil {
			return err
		}
	}
	if viperConfig.GetBool(configurator.CfgRenderGeneratePNG) || cmd.Flags().Changed("png") {
		if err := preview(viperConfig.GetString(configurator.CfgRenderOutFile), done); err != nil {
			return err
		}
	}

	if glog.V(1) {
		glog.Infoln("elapsed", time.Since(timeStamp))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(jobs))
	}
	return nil
}

func report(w io.Writer, job *gerber2solid.Job) {
	fmt.Fprintln(w, "input file:", job.Path, "("+job.Layer.Kind.String()+")")
	if job.Skipped {
		fmt.Fprintln(w, "  skipped:", gerber2solid.ErrDrillFile)
		return
	}
	if job.Result != nil {
		if viperConfig.GetBool(configurator.CfgCommonPrintWarnings) {
			for _, warn := range job.Result.Warnings {
				fmt.Fprintln(w, "  warning:", warn)
			}
		}
		if viperConfig.GetBool(configurator.CfgCommonPrintStatistic) {
			for _, line := range strings.Split(job.Result.String(), "\n") {
				fmt.Fprintln(w, "  "+line)
			}
		}
	}
	if job.Err != nil {
		fmt.Fprintln(w, "  error:", job.Err)
	}
}

func buildAll(p plotter.Plotter, jobs []gerber2solid.Job) error {
	for _, job := range jobs {
		if err := p.Build(job.Layer.Name, job.Result.Geometry); err != nil {
			return fmt.Errorf("%s: %w", job.Path, err)
		}
	}
	return nil
}

// one PNG per layer, the layer name is added to the file name when there are several
func preview(path string, jobs []gerber2solid.Job) error {
	for _, job := range jobs {
		out := path
		if len(jobs) > 1 {
			ext := filepath.Ext(path)
			out = strings.TrimSuffix(path, ext) + "_" + job.Layer.Name + ext
		}
		rc, err := render.NewRender(viperConfig, job.Result.Geometry)
		if err != nil {
			return err
		}
		rc.Draw(job.Result.Geometry)
		if err := rc.SaveFile(out); err != nil {
			return err
		}
	}
	return nil
}
