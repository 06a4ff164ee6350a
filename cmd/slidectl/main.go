// slidectl 在本地拆分、渲染和导出Markdown幻灯片，不依赖服务端
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/fyerfyer/slideai/internal/export"
	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slidectl",
		Short:         "Split, render and export Markdown slide decks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSplitCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newExportCmd())
	return root
}

// readDocument 读取文件内容，参数为空或"-"时读标准输入
func readDocument(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// pickSlide 按从1开始的序号选出幻灯片，0表示预览规则（第一张或占位内容）
func pickSlide(doc string, n int) (string, error) {
	if n == 0 {
		if segment, ok := slides.First(doc); ok {
			return segment, nil
		}
		return slides.Placeholder, nil
	}

	segments := slides.Split(doc)
	if n < 0 || n > len(segments) {
		return "", fmt.Errorf("slide %d out of range (deck has %d slides)", n, len(segments))
	}
	return segments[n-1], nil
}

func newSplitCmd() *cobra.Command {
	var (
		countOnly bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Split a document into slide segments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			segments := slides.Split(doc)
			out := cmd.OutOrStdout()

			switch {
			case countOnly:
				fmt.Fprintln(out, len(segments))
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(segments)
			default:
				for i, segment := range segments {
					fmt.Fprintf(out, "=== slide %d/%d ===\n%s\n", i+1, len(segments), segment)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&countOnly, "count", "c", false, "Print only the number of slides")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print segments as a JSON array")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		slide    int
		sanitize bool
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render one slide to an HTML fragment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			segment, err := pickSlide(doc, slide)
			if err != nil {
				return err
			}

			renderer := slides.NewRenderer(slides.WithSanitize(sanitize))
			fmt.Fprintln(cmd.OutOrStdout(), renderer.Render(segment))
			return nil
		},
	}

	cmd.Flags().IntVarP(&slide, "slide", "n", 0, "Slide number starting at 1 (default: preview rule)")
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "Sanitize the rendered HTML")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var (
		slide int
		style string
		width int
	)

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Preview a slide in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			segment, err := pickSlide(doc, slide)
			if err != nil {
				return err
			}

			styleOpt := glamour.WithStandardStyle(style)
			if style == "auto" {
				styleOpt = glamour.WithAutoStyle()
			}
			r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
			if err != nil {
				return fmt.Errorf("failed to create terminal renderer: %w", err)
			}

			out, err := r.Render(segment)
			if err != nil {
				return fmt.Errorf("failed to render slide: %w", err)
			}

			total := slides.Count(doc)
			current := slide
			if current == 0 && total > 0 {
				current = 1
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "\n[%d/%d]\n", current, total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&slide, "slide", "n", 0, "Slide number starting at 1 (default: first slide)")
	cmd.Flags().StringVar(&style, "style", "auto", "Glamour style: auto, dark, light, notty")
	cmd.Flags().IntVar(&width, "width", 80, "Word wrap width")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format string
		title  string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a deck as markdown, html or pdf",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			if title == "" && len(args) > 0 && args[0] != "-" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			artifact, err := export.Export(f, export.Deck{Title: title, Markdown: doc})
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outDir, artifact.Filename)
			if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d slides, %s)\n", path, artifact.Slides, humanize.Bytes(uint64(len(artifact.Data))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "html", "Export format: markdown, html, pdf")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Deck title (default: file name)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}
