package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/export"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/ui"
	"github.com/vanderheijden86/arbor/pkg/view"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var errNoData = errors.New("no data file: pass -data or set data in " + filepath.Join(config.DirName, config.FileName))

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the exit code, so deferred cleanup runs
// before the process exits.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arbor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	help := fs.Bool("help", false, "Show help")
	versionFlag := fs.Bool("version", false, "Show version")
	dataFlag := fs.String("data", "", "Tree data file (*.tree.json or *.tree.yaml)")
	configFlag := fs.String("config", "", "Config file (default: .arbor/config.yaml found from the working directory)")
	htmlOut := fs.String("html", "", "Write the rendered tree as a standalone HTML page")
	svgOut := fs.String("svg", "", "Write the visible tree as an SVG diagram")
	pngOut := fs.String("png", "", "Write the visible tree as a PNG diagram")
	mdOut := fs.String("md", "", "Write the tree as a markdown outline")
	previewAddr := fs.String("preview", "", "Serve a live preview on this address (e.g. :8080)")
	dumpJSON := fs.Bool("dump-json", false, "Print the normalized tree as JSON")
	scan := fs.Bool("scan", false, "List tree data files under the working directory")
	debug := fs.Bool("debug", false, "Log to "+filepath.Join(config.DirName, "debug.log"))
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		fmt.Fprintln(stdout, "Usage: arbor [options]")
		fmt.Fprintln(stdout, "\nAn interactive tree view for hierarchical data files.")
		fs.PrintDefaults()
		return 0
	}

	if *versionFlag {
		fmt.Fprintf(stdout, "arbor %s\n", version)
		return 0
	}

	if *scan {
		for _, p := range config.ScanTreeFiles(".", 3) {
			fmt.Fprintln(stdout, p)
		}
		return 0
	}

	cfg, err := config.LoadOrDefault(*configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	opts, err := cfg.WidgetOptions()
	if err != nil {
		fmt.Fprintf(stderr, "Error in config: %v\n", err)
		return 1
	}

	dataPath, err := resolveDataPath(*dataFlag, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *debug {
		f, err := openDebugLog(cfg.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: debug log: %v\n", err)
		} else {
			defer func() {
				f.Close()
				log.SetOutput(os.Stderr)
			}()
			opts.Logger = log.Default()
		}
	}

	if *previewAddr != "" {
		if err := runPreview(dataPath, opts, *previewAddr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	items, err := loader.LoadFile(dataPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading data: %v\n", err)
		return 1
	}

	w, err := buildTree(items, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *dumpJSON {
		if err := writeJSON(stdout, w); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	outputs := exportTargets{HTML: *htmlOut, SVG: *svgOut, PNG: *pngOut, Markdown: *mdOut}
	if !outputs.empty() {
		written, err := writeExports(w, titleOf(dataPath), outputs)
		for _, p := range written {
			fmt.Fprintf(stdout, "Wrote %s\n", p)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Piped output gets the markup instead of a TUI.
	if !isTerminal(stdout) {
		fmt.Fprintln(stdout, w.HTML())
		return 0
	}

	if err := runTUI(items, opts, dataPath, stderr); err != nil {
		fmt.Fprintf(stderr, "Error running TUI: %v\n", err)
		return 1
	}
	return 0
}

// resolveDataPath picks the data file: the flag, then the config, then the
// only data file in the working directory.
func resolveDataPath(flagValue string, cfg config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if p := cfg.DataPath(); p != "" {
		return p, nil
	}
	found := config.ScanTreeFiles(".", 1)
	switch len(found) {
	case 0:
		return "", errNoData
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w (found %d candidates: %s)", errNoData, len(found), strings.Join(found, ", "))
	}
}

// buildTree renders items into a fresh document.
func buildTree(items []model.Item, opts widget.Options) (*widget.Tree, error) {
	if opts.RootElement == "" {
		opts.RootElement = ui.DefaultRootElement
	}
	doc := view.NewDocument()
	doc.CreateRoot(opts.RootElement, "ul")
	return widget.New(doc, items, opts)
}

func titleOf(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{".tree.json", ".tree.yaml", ".tree.yml"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(out io.Writer, w *widget.Tree) error {
	data, err := json.MarshalIndent(w.Model().Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

type exportTargets struct {
	HTML     string
	SVG      string
	PNG      string
	Markdown string
}

func (e exportTargets) empty() bool {
	return e.HTML == "" && e.SVG == "" && e.PNG == "" && e.Markdown == ""
}

// writeExports writes every requested artifact and returns the paths
// written before the first failure.
func writeExports(w *widget.Tree, title string, targets exportTargets) ([]string, error) {
	var written []string

	if targets.HTML != "" {
		p, err := export.SaveHTMLPage(w.Document(), export.PageOptions{Title: title, Config: w.Config(), Path: targets.HTML})
		if err != nil {
			return written, fmt.Errorf("html: %w", err)
		}
		written = append(written, p)
	}

	diagram := export.DefaultDiagramOptions()
	diagram.Title = title
	if targets.SVG != "" {
		if err := writeFile(targets.SVG, func(f io.Writer) error { return export.WriteSVG(f, w.Rows(), diagram) }); err != nil {
			return written, fmt.Errorf("svg: %w", err)
		}
		written = append(written, targets.SVG)
	}
	if targets.PNG != "" {
		if err := writeFile(targets.PNG, func(f io.Writer) error { return export.WritePNG(f, w.Rows(), diagram) }); err != nil {
			return written, fmt.Errorf("png: %w", err)
		}
		written = append(written, targets.PNG)
	}

	if targets.Markdown != "" {
		if err := export.SaveMarkdownToFile(w.Model().Snapshot(), title, targets.Markdown); err != nil {
			return written, fmt.Errorf("markdown: %w", err)
		}
		written = append(written, targets.Markdown)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runPreview(dataPath string, opts widget.Options, addr string) error {
	srv, err := export.NewPreviewServer(dataPath, opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving %s on http://%s (Ctrl+C to stop)\n", dataPath, displayAddr(addr))
	return srv.Run(ctx, addr)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// openDebugLog routes the standard logger to .arbor/debug.log and keeps
// the log out of git.
func openDebugLog(projectDir string) (*os.File, error) {
	if projectDir == "" {
		projectDir = "."
	}
	dir := filepath.Join(projectDir, config.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := config.EnsureLogsIgnored(projectDir); err != nil {
		log.Printf("warning: updating .gitignore: %v", err)
	}
	return tea.LogToFile(filepath.Join(dir, "debug.log"), "arbor")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUI(items []model.Item, opts widget.Options, dataPath string, stderr io.Writer) error {
	m, err := ui.NewModel(items, opts, dataPath)
	if err != nil {
		return err
	}

	if worker, err := startWorker(dataPath, opts.Logger); err != nil {
		fmt.Fprintf(stderr, "Warning: live reload disabled: %v\n", err)
	} else {
		m.SetWorker(worker)
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

func startWorker(path string, logger *log.Logger) (*ui.DataWorker, error) {
	w, err := ui.NewDataWorker(ui.WorkerConfig{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
