package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/imagecmp"
)

// compareCommand creates the compare command for visual similarity checks.
func (c *CLI) compareCommand() *cobra.Command {
	var (
		heatmapOut string
		asJSON     bool
		quick      bool
	)

	cmd := &cobra.Command{
		Use:   "compare [reference.png] [generated.png]",
		Short: "Compare a generated render against a reference image",
		Long: `Compare a generated diagram render against a reference image.

The compare command computes structural similarity (SSIM) and a perceptual
hash distance between the two images, blends them into a combined score,
and reports whether the pair passes the similarity threshold.

With --heatmap, a difference heatmap PNG is written highlighting the
regions where the images diverge, with the strongest hotspots outlined.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompare(cmd.Context(), args[0], args[1], heatmapOut, asJSON, quick)
		},
	}

	cmd.Flags().StringVar(&heatmapOut, "heatmap", "", "write a difference heatmap PNG to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&quick, "quick", false, "perceptual hash check only, skip SSIM")

	return cmd
}

func (c *CLI) runCompare(ctx context.Context, refPath, genPath, heatmapOut string, asJSON, quick bool) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts := cfg.CompareOptions()

	ref, err := os.ReadFile(refPath)
	if err != nil {
		return fmt.Errorf("read reference %s: %w", refPath, err)
	}
	gen, err := os.ReadFile(genPath)
	if err != nil {
		return fmt.Errorf("read generated %s: %w", genPath, err)
	}

	if quick {
		similar, err := imagecmp.QuickCheck(ref, gen, opts)
		if err != nil {
			return fmt.Errorf("compare images: %w", err)
		}
		if similar {
			printSuccess("Images are perceptually similar")
		} else {
			printWarning("Images differ perceptually")
		}
		return nil
	}

	p := newProgress(logger)
	p.spin(ctx, "Comparing images...")
	result, err := imagecmp.Compare(ref, gen, opts)
	if err != nil {
		p.fail("Comparison failed")
		return fmt.Errorf("compare images: %w", err)
	}
	p.done("Compared images")

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printCompareResult(result)
	}

	if heatmapOut != "" {
		if err := writeHeatmap(ref, gen, heatmapOut); err != nil {
			return err
		}
		printFile(heatmapOut)
	}
	return nil
}

func printCompareResult(r *imagecmp.Result) {
	fmt.Println(StyleTitle.Render("Visual similarity"))
	printKeyValue("structural (SSIM)", formatScore(r.StructuralSimilarity))
	printKeyValue("hash distance", fmt.Sprintf("%d/64", r.HashDistance))
	printKeyValue("combined", formatScore(r.CombinedScore))
	if r.Similar {
		printSuccess("Images match within threshold")
	} else {
		printWarning("Images fall below the similarity threshold")
	}
}

func writeHeatmap(ref, gen []byte, path string) error {
	hm, err := imagecmp.ComputeHeatmap(ref, gen, imagecmp.DefaultHeatmapOptions())
	if err != nil {
		return fmt.Errorf("compute heatmap: %w", err)
	}
	base, _, err := image.Decode(bytes.NewReader(gen))
	if err != nil {
		return fmt.Errorf("decode generated image: %w", err)
	}
	png, err := imagecmp.RenderPNG(hm, base)
	if err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write heatmap %s: %w", path, err)
	}
	return nil
}
