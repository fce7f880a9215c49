// Command denpa generates words, texts and sound-changed word lists from a
// constructed-language file.
//
//	denpa lang.dn                 one word
//	denpa lang.dn -t 20 -s        twenty words, collated
//	denpa lang.dn -T              a paragraph of eleven sentences
//	denpa lang.dn -T=3 -w 40      three sentences wrapped to 40 columns
//	denpa lang.dn words.txt       evolve every word of a word list
//	denpa watch lang.dn -t 10     regenerate whenever the files change
//	denpa config init             write denpa.yaml with the defaults
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cours-de-latin/denpa"
	"github.com/cours-de-latin/denpa/config"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "denpa"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", appName, denpa.Diagnostic(err))
		os.Exit(1)
	}
}

// options collects the command-line flags.
type options struct {
	configPath string
	logLevel   string
	sorted     bool
	sortedOnly bool
	times      int
	text       int
	width      int
	seed       int64
	rule       string
}

// settings are the effective values after config layering.
type settings struct {
	times      int
	text       int
	width      int
	seed       int64
	sorted     bool
	sortedOnly bool
	rule       string
	logger     *slog.Logger
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "denpa LANGUAGE [LEXICON]",
		Short: "Constructed-language word generator",
		Long: `Denpa generates words from a declarative language file and runs them
through the file's ordered sound changes.

With a LEXICON file, every line of it is segmented into the language's
letters and evolved through the sound changes instead.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd, opts)
			if err != nil {
				return err
			}
			lang, err := load(args[0], s)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return runLexicon(cmd.OutOrStdout(), lang, args[1], s)
			}
			return runGenerate(cmd.OutOrStdout(), lang, s)
		},
	}

	addFlags(cmd, opts)
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(configCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func addFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVarP(&opts.sorted, "sorted", "s", false, "Collate output by letter order")
	f.BoolVarP(&opts.sortedOnly, "sorted-only", "S", false, "Collate output and drop duplicates")
	f.IntVarP(&opts.times, "times", "t", 0, "Number of words to generate")
	f.IntVarP(&opts.text, "text", "T", 0, "Generate a text of this many sentences (-T=N)")
	// -T without a value takes the configured sentence count.
	f.Lookup("text").NoOptDefVal = "-1"
	f.IntVarP(&opts.width, "width", "w", 0, "Wrap text to this many columns")
	f.Int64Var(&opts.seed, "seed", 0, "Random seed (0 seeds from the clock)")
	f.StringVarP(&opts.rule, "rule", "r", "", "Start rule (default 'word', else the last rule)")
	cmd.MarkFlagsMutuallyExclusive("sorted", "sorted-only")
	cmd.MarkFlagsMutuallyExclusive("times", "text")
}

// resolve layers the config files under the flags that were set.
func resolve(cmd *cobra.Command, opts *options) (*settings, error) {
	cfg, err := config.NewLoader(nil).Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("times") {
		cfg.Times = opts.times
	}
	if f.Changed("width") {
		cfg.Width = opts.width
	}
	if f.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if f.Changed("sorted") {
		cfg.Sorted = opts.sorted
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	s := &settings{
		times:      cfg.Times,
		width:      cfg.Width,
		seed:       cfg.Seed,
		sorted:     cfg.Sorted || opts.sortedOnly,
		sortedOnly: opts.sortedOnly,
		rule:       opts.rule,
		logger:     newLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	}
	if f.Changed("text") {
		s.text = opts.text
		if s.text < 0 {
			s.text = cfg.Sentences
		}
	}
	slog.SetDefault(s.logger)
	return s, nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func load(path string, s *settings) (*denpa.Language, error) {
	opts := []denpa.Option{denpa.WithLogger(s.logger)}
	if s.seed != 0 {
		opts = append(opts, denpa.WithSeed(s.seed))
	}
	lang, err := denpa.Load(path, opts...)
	if err != nil {
		return nil, err
	}
	lang.SetStartRule(s.rule)
	return lang, nil
}

func runGenerate(w io.Writer, lang *denpa.Language, s *settings) error {
	if s.text > 0 {
		text, err := lang.Textify(s.text, s.width)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	}
	words, err := lang.Generate(s.times, s.sorted)
	if err != nil {
		return err
	}
	if s.sortedOnly {
		words = denpa.Dedup(words)
	}
	return printWords(w, words)
}

// runLexicon evolves every word of a word list. Unsorted output pairs each
// original with its evolved form; sorted output lists evolved forms only.
func runLexicon(w io.Writer, lang *denpa.Language, path string, s *settings) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	var originals, evolved []denpa.Word
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		word := lang.Normalize(line)
		out, err := lang.Evolve(word)
		if err != nil {
			return err
		}
		originals = append(originals, word)
		evolved = append(evolved, out)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read lexicon: %w", err)
	}

	if s.sorted {
		words := lang.Sort(evolved, false)
		if s.sortedOnly {
			words = denpa.Dedup(words)
		}
		return printWords(w, words)
	}
	for i := range originals {
		if _, err := fmt.Fprintf(w, "%s > %s\n", originals[i], evolved[i]); err != nil {
			return err
		}
	}
	return nil
}

func printWords(w io.Writer, words []denpa.Word) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		fmt.Fprintln(bw, word)
	}
	return bw.Flush()
}
