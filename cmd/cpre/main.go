// Command cpre runs the C99 preprocessing phases over source and header
// files and writes the resulting translation units.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/c99kit/cpre/pkg/cpp"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

type cliOptions struct {
	includePaths []string
	defines      []string
	undefines    []string
	keepComments bool
	debug        bool
	output       string
	configPath   string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "cpre [flags] file...",
		Short:         "C99 preprocessor",
		Long:          "cpre executes the C99 translation phases that precede compilation:\ntrigraph replacement, line splicing, comment stripping, and directive\nexecution. Arguments may be files or doublestar glob patterns.",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runPreprocess(out, errOut, opts, args)
			if err != nil {
				fmt.Fprintf(errOut, "cpre: %v\n", err)
			}
			return err
		},
	}

	rootCmd.Flags().StringArrayVarP(&opts.includePaths, "include-dir", "I", nil, "add a directory to the header search path")
	rootCmd.Flags().StringArrayVarP(&opts.defines, "define", "D", nil, "define a macro, NAME or NAME=value")
	rootCmd.Flags().StringArrayVarP(&opts.undefines, "undefine", "U", nil, "undefine a macro")
	rootCmd.Flags().BoolVar(&opts.keepComments, "keep-comments", false, "keep comments in the output")
	rootCmd.Flags().BoolVar(&opts.debug, "debug", false, "trace grammar-rule reductions")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout with -o -, default: alongside input with .i extension)")
	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")

	return rootCmd
}

func runPreprocess(out, errOut io.Writer, opts *cliOptions, args []string) error {
	cfg := &config{}
	if opts.configPath != "" {
		loaded, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	files, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files matched")
	}
	if opts.output != "" && opts.output != "-" && len(files) > 1 {
		return fmt.Errorf("-o %s: cannot combine an output file with multiple inputs", opts.output)
	}

	for _, file := range files {
		// Macro tables and header caches are scoped to one translation
		// unit, so each input gets its own engine.
		pp, err := cpp.NewPreprocessor(cpp.Options{
			StdlibPaths:  append(append([]string{}, cfg.StdlibPaths...), opts.includePaths...),
			KeepComments: cfg.KeepComments || opts.keepComments,
			Debug:        opts.debug,
			Defines:      append(append([]string{}, cfg.Defines...), opts.defines...),
			Undefines:    append(append([]string{}, cfg.Undefines...), opts.undefines...),
			Diagnostics:  errOut,
		})
		if err != nil {
			return err
		}

		result, err := pp.Process(file)
		if err != nil {
			return err
		}

		if err := writeResult(out, opts.output, file, result); err != nil {
			return err
		}
	}
	return nil
}

// expandArgs resolves each argument, treating anything with glob
// metacharacters as a doublestar pattern. The result is sorted and
// deduplicated.
func expandArgs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %s: no files matched", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(files)
	return files, nil
}

func writeResult(out io.Writer, output, input, result string) error {
	switch output {
	case "-":
		_, err := io.WriteString(out, result)
		return err
	case "":
		target := strings.TrimSuffix(input, filepath.Ext(input)) + ".i"
		return os.WriteFile(target, []byte(result), 0o644)
	default:
		return os.WriteFile(output, []byte(result), 0o644)
	}
}
