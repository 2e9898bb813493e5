package main

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// profile is a parser configuration stored in a YAML file:
//
//	limit: 5000
//	commands: [Advance, VerifyChecksum, IssueCommand]
//	save_commands: true
//	stop_on_desync: false
type profile struct {
	Limit        *int     `yaml:"limit"`
	Commands     []string `yaml:"commands"`
	SaveCommands *bool    `yaml:"save_commands"`
	StopOnDesync *bool    `yaml:"stop_on_desync"`
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var p profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &p, nil
}

// apply fills opts from the profile. Flags set on the command line win.
func (p *profile) apply(cmd *cobra.Command, opts *options) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if p.Limit != nil && !changed("limit") {
		opts.limit = *p.Limit
	}
	if len(p.Commands) > 0 && !changed("commands") {
		opts.commands = p.Commands
	}
	if p.SaveCommands != nil && !changed("save-commands") {
		opts.saveCommands = *p.SaveCommands
	}
	if p.StopOnDesync != nil && !changed("no-stop-on-desync") {
		opts.noStopOnDesync = !*p.StopOnDesync
	}
}
