package cli

import "flag"

const defaultConfigPath = "./data/config/tokentrace.toml"

type cliOptions struct {
	configPath    string
	once          bool
	watch         bool
	ui            bool
	serve         bool
	history       bool
	since         string
	historyWindow string
	historyTSV    string
	historyJSON   string
	query         string
	queryLimit    int
	trends        bool
	file          string
	explain       string
	verbose       bool
	version       bool
	args          []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("tokentrace", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", false, "Run single scan and exit (the default mode made explicit)")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and re-analyze stylesheets on change")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode (implies -watch)")
	fs.BoolVar(&opts.serve, "serve", false, "Serve /metrics and /health over HTTP (implies -watch)")
	fs.BoolVar(&opts.history, "history", false, "Enable local history snapshots and trend reporting")
	fs.StringVar(&opts.since, "since", "", "Include historical snapshots at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyWindow, "history-window", "24h", "Moving-window duration for trend summaries (requires -history)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write trend report TSV to this path (requires -history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write trend report JSON to this path (requires -history)")
	fs.StringVar(&opts.query, "query", "", "Run a propagation query: SELECT directories|files [WHERE ...], or a bare WHERE clause over files")
	fs.IntVar(&opts.queryLimit, "query-limit", 0, "Optional row limit for query modes")
	fs.BoolVar(&opts.trends, "trends", false, "Print historical trend slice (requires -history)")
	fs.StringVar(&opts.file, "file", "", "Print the full analysis of one stylesheet and exit")
	fs.StringVar(&opts.explain, "explain", "", "With -file: show source context for a custom property")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
