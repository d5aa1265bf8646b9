// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdClear
	CmdSetup
	CmdConfig
	CmdListen
	CmdScripts
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Provider   string // overrides the stored provider for this run
	DOM        bool   // include the page DOM for this run
	Console    bool   // include console logs for this run
	TTS        bool   // speak replies for this run
	ConfigPath string
	Verbose    bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `monkai - chat about the page in your browser

Usage:
  monkai                          Start the chat panel (default)
  monkai tui                      Start the chat panel
  monkai ask "question"           Ask one question and stream the reply
      --speak                     Speak the reply and wait for playback
  monkai clear                    Clear the saved conversation
  monkai setup                    Choose a provider and enter an API key
  monkai config show              Print the configuration
  monkai config get <key>         Print one configuration value
  monkai config set <key> <value> Change a configuration value
  monkai listen <file>            Transcribe an audio file
  monkai scripts list             List MonkaiScripter scripts
  monkai scripts add <name> --pattern <glob> --file <js>
                                  Add a script (code from file, or stdin)
  monkai scripts rm <name|id>     Delete a script
  monkai scripts toggle <name|id> Enable or disable a script
  monkai scripts run [url]        Run matching scripts in the browser tab
  monkai scripts export [file]    Write scripts as YAML
  monkai scripts import <file>    Merge scripts from YAML
  monkai version                  Show version

Global flags:
  --provider openai|claude        Use this provider for this run
  --dom                           Include the page DOM structure
  --console                       Include recent console logs
  --tts                           Speak replies
  --config <path>                 Config file (default ~/.monkai/config.toml)
  -v, --verbose                   Debug logging

Panel keys:
  Enter send   Up/Down prompt history   PgUp/PgDn scroll
  C-r voice input   C-l clear   C-o DOM   C-g console   C-t speech
  Esc stop speaking   C-c quit

Version: %s
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "monkai version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	word := remaining[0]
	cmd := strings.ToLower(word)
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "clear":
		return CmdClear, parsedArgs

	case "setup":
		return CmdSetup, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "listen":
		return CmdListen, parsedArgs

	case "scripts", "script":
		return CmdScripts, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Anything else is read as a question.
		parsedArgs.Raw = append([]string{word}, remaining...)
		parsedArgs.Subcommand = ""
		parseAskArgs(&parsedArgs, parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--dom":
			parsedArgs.DOM = true
		case "--console":
			parsedArgs.Console = true
		case "--tts":
			parsedArgs.TTS = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--provider", "--config":
			if i+1 < len(args) {
				i++
				if arg == "--provider" {
					parsedArgs.Provider = strings.ToLower(args[i])
				} else {
					parsedArgs.ConfigPath = args[i]
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--provider="):
				parsedArgs.Provider = strings.ToLower(strings.TrimPrefix(arg, "--provider="))
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}
	return remaining, parsedArgs
}

// parseAskArgs reads the question and the --speak flag.
func parseAskArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining, "speak")
	if p.BoolFlag("speak") {
		args.TTS = true
	}
	args.Query = strings.TrimSpace(JoinPositionalArgs(p, 0))
}
