// cmd/idxcheck/main.go
//
// idxcheck - offline consistency checker for B-tree index segment files.
//
// Usage:
//
//	idxcheck check FILE --schema name:type,...
//	idxcheck types
//	idxcheck runs REPORT-DB
//	idxcheck findings REPORT-DB RUN
//
// check exits with a non-zero status when any page has findings.
package main

import (
	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Diagnostics level (debug traces every tuple and attribute)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Diagnostics format"`
}

// CLI defines the command-line interface for idxcheck.
var CLI struct {
	Globals

	Check    CheckCmd    `cmd:"" help:"Check the pages of an index segment file"`
	Types    TypesCmd    `cmd:"" help:"List the built-in attribute types"`
	Runs     RunsCmd     `cmd:"" help:"List check runs stored in a report database"`
	Findings FindingsCmd `cmd:"" help:"Show the findings of a stored run"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("idxcheck"),
		kong.Description("Offline consistency checker for B-tree index pages"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
