package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/condor/scfa-parser/pkg/scfa"
)

type options struct {
	debug          bool
	configPath     string
	limit          int
	commands       []string
	saveCommands   bool
	noStopOnDesync bool
	indent         bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "scfareplay",
		Short:         "Inspect Supreme Commander: Forged Alliance replays",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.debug)
			if opts.configPath == "" {
				return nil
			}
			p, err := loadProfile(opts.configPath)
			if err != nil {
				return err
			}
			p.apply(cmd, opts)
			log.Debug().Str("config", opts.configPath).Msg("parser profile loaded")
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log decoder debug events")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML parser profile")

	parseFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&opts.limit, "limit", 0, "stop after this many commands (0 = all)")
		cmd.Flags().StringSliceVar(&opts.commands, "commands", nil, "command names or tags to keep (default all)")
		cmd.Flags().BoolVar(&opts.saveCommands, "save-commands", false, "keep decoded commands in the output")
		cmd.Flags().BoolVar(&opts.noStopOnDesync, "no-stop-on-desync", false, "record desyncs instead of failing")
	}

	info := &cobra.Command{
		Use:   "info <replay>",
		Short: "Print a summary of a replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.OutOrStdout(), opts, args[0])
		},
	}
	parseFlags(info)

	dump := &cobra.Command{
		Use:   "json <replay>",
		Short: "Print a replay as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJSON(cmd.OutOrStdout(), opts, args[0])
		},
	}
	parseFlags(dump)
	dump.Flags().BoolVar(&opts.indent, "indent", false, "indent the JSON output")

	offset := &cobra.Command{
		Use:   "offset <replay>",
		Short: "Print the byte offset at which the replay body starts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readReplay(args[0])
			if err != nil {
				return err
			}
			off, err := scfa.BodyOffset(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), off)
			return nil
		},
	}

	ticks := &cobra.Command{
		Use:   "ticks <replay>",
		Short: "Print the number of simulation ticks without checking for desyncs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readReplay(args[0])
			if err != nil {
				return err
			}
			off, err := scfa.BodyOffset(data)
			if err != nil {
				return err
			}
			n, err := scfa.BodyTicks(data[off:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n", n, scfa.FormatDuration(scfa.TicksToDuration(n)))
			return nil
		},
	}

	query := &cobra.Command{
		Use:   "lua <replay> <code>",
		Short: "Run Lua code against the replay header and print what it returns",
		Long: "Run Lua code against the replay header. The globals scenario, mods, armies,\n" +
			"players, map_file, scfa_version, replay_version, seed and cheats_enabled\n" +
			"are set. Example: scfareplay lua game.scfareplay 'return scenario.Options.Victory'",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLua(cmd.OutOrStdout(), opts, args[0], args[1])
		},
	}

	root.AddCommand(info, dump, offset, ticks, query)
	return root
}

func setupLogging(w io.Writer, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func readReplay(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read replay")
	}
	return data, nil
}

// parseCommandTags accepts canonical command names or numeric tags.
func parseCommandTags(values []string) ([]scfa.CommandTag, error) {
	tags := make([]scfa.CommandTag, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if tag, ok := scfa.CommandTagByName(v); ok {
			tags = append(tags, tag)
			continue
		}
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || !scfa.CommandTag(n).Valid() {
			return nil, errors.Errorf("unknown command %q", v)
		}
		tags = append(tags, scfa.CommandTag(n))
	}
	return tags, nil
}

func buildParser(opts *options) (*scfa.Parser, error) {
	b := scfa.NewParserBuilder().
		Limit(opts.limit).
		SaveCommands(opts.saveCommands).
		StopOnDesync(!opts.noStopOnDesync).
		Logger(log.Logger)
	if len(opts.commands) > 0 {
		tags, err := parseCommandTags(opts.commands)
		if err != nil {
			return nil, err
		}
		b = b.Commands(tags...)
	}
	return b.Build()
}

func runInfo(w io.Writer, opts *options, path string) error {
	parser, err := buildParser(opts)
	if err != nil {
		return err
	}
	data, err := readReplay(path)
	if err != nil {
		return err
	}
	replay, err := parser.Parse(data)
	if err != nil {
		return err
	}

	h := replay.Header
	sim := replay.Body.Sim
	fmt.Fprintf(w, "Game:     %s\n", h.SCFAVersion)
	fmt.Fprintf(w, "Replay:   %s\n", h.ReplayVersion)
	fmt.Fprintf(w, "Map:      %s\n", h.MapFile)
	fmt.Fprintf(w, "Seed:     %d\n", h.Seed)
	fmt.Fprintf(w, "Cheats:   %t\n", h.CheatsEnabled)
	fmt.Fprintf(w, "Duration: %s (%d ticks)\n", scfa.FormatDuration(sim.Duration()), sim.Tick)
	if sim.Desynced() {
		fmt.Fprintf(w, "Desync:   tick %d (%d mismatches)\n", *sim.DesyncTick, len(sim.DesyncTicks))
	}

	fmt.Fprintf(w, "Players (%d):\n", len(h.Players))
	// Command sources are numbered by position in the player list.
	for i, p := range h.Players {
		last := "-"
		if tick, ok := sim.PlayersLastTick[uint8(i)]; ok && i <= 0xFF {
			last = scfa.FormatDuration(scfa.TicksToDuration(tick))
		}
		fmt.Fprintf(w, "  %-24s id=%-3d last active %s\n", p.Name, p.ID, last)
	}

	fmt.Fprintf(w, "Armies (%d):\n", h.ArmyCount)
	for _, idx := range h.ArmyIndexes() {
		army := h.Armies[idx]
		source := "none"
		if army.Source != nil {
			source = strconv.Itoa(int(*army.Source))
		}
		fmt.Fprintf(w, "  %2d %-24s source=%s\n", idx, army.PlayerName(), source)
	}
	return nil
}

func runJSON(w io.Writer, opts *options, path string) error {
	parser, err := buildParser(opts)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open replay")
	}
	defer f.Close()

	replay, err := parser.ParseStream(f)
	if err != nil {
		return err
	}
	out, err := replay.ToJSON(opts.indent)
	if err != nil {
		return errors.Wrap(err, "encode replay")
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func runLua(w io.Writer, opts *options, path, code string) error {
	parser, err := buildParser(opts)
	if err != nil {
		return err
	}
	data, err := readReplay(path)
	if err != nil {
		return err
	}
	header, err := parser.ParseHeader(data)
	if err != nil {
		return err
	}
	results, err := scfa.QueryHeader(header, code)
	if err != nil {
		return err
	}
	for _, r := range results {
		out, err := json.Marshal(r)
		if err != nil {
			return errors.Wrap(err, "encode result")
		}
		fmt.Fprintln(w, string(out))
	}
	return nil
}
