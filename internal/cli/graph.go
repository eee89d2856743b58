package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kolamlabs/kolamscan/pkg/detect"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
	"github.com/kolamlabs/kolamscan/pkg/topology"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format     string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "graph <image>",
		Short: "Export the stroke skeleton as a graph",
		Long: `Graph skeletonizes the drawn strokes in an image and condenses them into
a graph of junctions and endpoints. The graph is written in Graphviz DOT
format, or rendered to SVG with --format svg.

Kolam line work is traditionally drawn in unbroken loops, so the printed
connectivity summary (components, cycles, Eulerian feasibility) is a
quick check of how well a design follows that convention.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gray, _, err := imaging.Load(args[0])
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(cmd.Context(), "Tracing skeleton...")
			spinner.Start()

			skeleton := detect.Skeletonize(gray.BinarizeInv(gray.OtsuThreshold()))
			g := topology.Build(skeleton)

			var out []byte
			switch strings.ToLower(format) {
			case "dot":
				out = []byte(g.ToDOT())
			case "svg":
				out, err = g.RenderSVG(cmd.Context())
			default:
				err = fmt.Errorf("unknown format %q (want dot or svg)", format)
			}
			if err != nil {
				spinner.StopWithError(err.Error())
				return err
			}

			if outputPath == "" && format == "svg" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				outputPath = base + ".skeleton.svg"
			}

			if outputPath == "" {
				spinner.Stop()
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			} else {
				if err := os.WriteFile(outputPath, out, 0o644); err != nil {
					spinner.StopWithError(err.Error())
					return fmt.Errorf("write output: %w", err)
				}
				spinner.StopWithSuccess(fmt.Sprintf("Traced %s", args[0]))
				printFile(outputPath)
			}

			printGraphSummary(g)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write output to a file (default stdout for dot)")

	return cmd
}

// printGraphSummary prints connectivity metrics to stderr so they do not
// mix with DOT output on stdout.
func printGraphSummary(g *topology.Graph) {
	var traits []string
	if g.Closed() {
		traits = append(traits, "closed loops")
	}
	if g.Eulerian() {
		traits = append(traits, "single-stroke drawable")
	}

	line := fmt.Sprintf("%d junctions · %d endpoints · %d components · %d cycles",
		g.Junctions, g.Endpoints, g.Components, g.CycleRank)
	fmt.Fprintln(os.Stderr, "  "+StyleDim.Render(line))
	if len(traits) > 0 {
		fmt.Fprintln(os.Stderr, "  "+StyleSuccess.Render(strings.Join(traits, " · ")))
	}
}
