// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package process wires process-wide configuration and logging for the
// lookupd binaries.
package process

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

func defaultConfigPath(name string) string {
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	path := filepath.Join(".lookupd", fmt.Sprintf("%s.json", name))
	home, err := homedir.Dir()
	if err != nil {
		log.Println(err)
		return path
	}
	return filepath.Join(home, path)
}

// Execute runs a *cobra.Command, filling its flags from the environment
// and the configuration file first.
func Execute(cmd *cobra.Command) {
	cfgFile := flag.String("config", defaultConfigPath(cmd.Name()),
		"config file")

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	cobra.OnInitialize(func() {
		Must(LoadConfig(cmd, *cfgFile))
	})

	Must(cmd.Execute())
}

// LoadConfig fills the flags of cmd that were not set on the command
// line from LOOKUPD_-prefixed environment variables and the given
// configuration file, in that precedence. A missing configuration file
// is not an error.
func LoadConfig(cmd *cobra.Command, cfgFile string) error {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := vip.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	vip.SetEnvPrefix("lookupd")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	if cfgFile != "" {
		vip.SetConfigFile(cfgFile)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return err
			}
		}
	}

	var failures []error
	fill := func(flags *pflag.FlagSet) {
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				return
			}
			if value := vip.GetString(f.Name); value != f.DefValue {
				if err := flags.Set(f.Name, value); err != nil {
					failures = append(failures, err)
				}
			}
		})
	}
	fill(cmd.Flags())
	fill(cmd.PersistentFlags())
	return errs.Combine(failures...)
}

// Must exits the process on error.
func Must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
