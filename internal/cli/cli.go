// Package cli parses the vocode command line into a Parsed request without running it.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rbright/vocode/internal/ipc"
	"github.com/rbright/vocode/internal/patterns"
	"github.com/spf13/cobra"
)

type Command string

const (
	CommandServe          Command = "serve"
	CommandSay            Command = "say"
	CommandResolve        Command = "resolve"
	CommandStop           Command = "stop"
	CommandStatus         Command = "status"
	CommandFocus          Command = "focus"
	CommandPatternsList   Command = "patterns.list"
	CommandPatternsAdd    Command = "patterns.add"
	CommandPatternsRemove Command = "patterns.remove"
	CommandPatternsReset  Command = "patterns.reset"
	CommandSet            Command = "set"
	CommandDoctor         Command = "doctor"
	CommandDevices        Command = "devices"
	CommandVersion        Command = "version"
	CommandHelp           Command = "help"
)

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Help is the usage text of the command help was requested for.
	Help string

	Utterance string
	File      string
	Line      int
	// Write saves modified buffers after a one-shot resolve.
	Write bool

	Rule   patterns.Rule
	First  bool
	Action string

	Option  string
	Enabled bool
}

// Parse maps args onto one command. Cobra supplies the grammar; nothing runs here.
func Parse(args []string) (Parsed, error) {
	if args == nil {
		args = []string{}
	}
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRoot(&parsed)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	if parsed.ShowHelp && parsed.Help == "" {
		parsed.Help = HelpText()
	}
	return parsed, nil
}

// HelpText renders the top-level usage.
func HelpText() string {
	root := newRoot(&Parsed{})
	return usage(root)
}

func setArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return err
	}
	if !slices.Contains(ipc.Options(), args[0]) {
		return fmt.Errorf("unknown option %q (want one of %s)", args[0], strings.Join(ipc.Options(), ", "))
	}
	if args[1] != "on" && args[1] != "off" {
		return fmt.Errorf("option value must be on or off, got %q", args[1])
	}
	return nil
}

func usage(cmd *cobra.Command) string {
	var b bytes.Buffer
	if cmd.Long != "" {
		b.WriteString(cmd.Long)
		b.WriteString("\n\n")
	} else if cmd.Short != "" {
		b.WriteString(cmd.Short)
		b.WriteString("\n\n")
	}
	b.WriteString(cmd.UsageString())
	return b.String()
}

func newRoot(p *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "vocode",
		Short:         "Voice command resolution for code editing",
		Long:          "vocode turns spoken utterances into editor commands, falling back to literal text.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			if showVersion {
				p.Command = CommandVersion
				p.ShowHelp = false
				return nil
			}
			p.Command = CommandHelp
			p.ShowHelp = true
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&p.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/vocode/config.jsonc)")
	root.Flags().BoolVar(&showVersion, "version", false, "show version")
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		p.Command = CommandHelp
		p.ShowHelp = true
		p.Help = usage(cmd)
	})

	leaf := func(command Command, use string, short string, args cobra.PositionalArgs, fill func([]string)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(_ *cobra.Command, rest []string) error {
				p.Command = command
				p.ShowHelp = false
				if fill != nil {
					fill(rest)
				}
				return nil
			},
		}
	}
	utterance := func(rest []string) { p.Utterance = strings.Join(rest, " ") }

	serve := leaf(CommandServe, "serve", "Run the daemon that owns the workspace and the socket", cobra.NoArgs, nil)
	say := leaf(CommandSay, "say <utterance...>", "Send an utterance to the running daemon", cobra.MinimumNArgs(1), utterance)
	stop := leaf(CommandStop, "stop", "Cancel the in-flight resolution and any speech", cobra.NoArgs, nil)
	status := leaf(CommandStatus, "status", "Print the daemon state", cobra.NoArgs, nil)
	doctor := leaf(CommandDoctor, "doctor", "Run configuration and environment checks", cobra.NoArgs, nil)
	devices := leaf(CommandDevices, "devices", "List audio output sinks for feedback cues", cobra.NoArgs, nil)
	version := leaf(CommandVersion, "version", "Print version information", cobra.NoArgs, nil)

	resolve := leaf(CommandResolve, "resolve <utterance...>", "Resolve one utterance locally without a daemon", cobra.MinimumNArgs(1), utterance)
	resolve.Flags().StringVar(&p.File, "file", "", "open this file first")
	resolve.Flags().IntVar(&p.Line, "line", 0, "place the cursor on this 1-indexed line first")
	resolve.Flags().BoolVar(&p.Write, "write", false, "save modified files afterwards")

	focus := leaf(CommandFocus, "focus <path>", "Open or focus a file in the daemon's workspace", cobra.ExactArgs(1), func(rest []string) {
		p.File = rest[0]
	})
	focus.Flags().IntVar(&p.Line, "line", 0, "1-indexed line to place the cursor on")

	patternsCmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and edit the daemon's pattern library",
	}

	var keepText bool
	add := leaf(CommandPatternsAdd, "add", "Register a pattern", cobra.NoArgs, func([]string) {
		if keepText {
			prevent := false
			p.Rule.PreventDefault = &prevent
		}
	})
	add.Flags().StringVar(&p.Rule.Match, "match", "", "literal phrase")
	add.Flags().StringVar(&p.Rule.Regex, "regex", "", "case-insensitive regular expression")
	add.Flags().StringVar(&p.Rule.Action, "action", "", "editor action id")
	add.Flags().StringArrayVar(&p.Rule.Args, "arg", nil, "action argument; $N expands capture group N")
	add.Flags().StringVar(&p.Rule.InsertText, "insert-text", "", "insert this text instead of running an action")
	add.Flags().StringVar(&p.Rule.Description, "description", "", "menu description")
	add.Flags().BoolVar(&p.First, "first", false, "register at the highest priority")
	add.Flags().BoolVar(&keepText, "keep-text", false, "also insert the utterance as text")
	add.MarkFlagsMutuallyExclusive("match", "regex")
	add.MarkFlagsOneRequired("match", "regex")

	remove := leaf(CommandPatternsRemove, "remove <action>", "Remove every pattern with an action id", cobra.ExactArgs(1), func(rest []string) {
		p.Action = rest[0]
	})

	patternsCmd.AddCommand(
		leaf(CommandPatternsList, "list", "List patterns in priority order", cobra.NoArgs, nil),
		add,
		remove,
		leaf(CommandPatternsReset, "reset", "Drop added patterns and restore the defaults", cobra.NoArgs, nil),
	)

	set := leaf(CommandSet, "set <option> <on|off>", "Toggle a daemon option ("+strings.Join(ipc.Options(), ", ")+")", setArgs, func(rest []string) {
		p.Option = rest[0]
		p.Enabled = rest[1] == "on"
	})

	root.AddCommand(serve, say, resolve, stop, status, focus, patternsCmd, set, doctor, devices, version)
	return root
}
