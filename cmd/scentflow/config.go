package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/banghyang/scentflow/pkg/flowgraph/config"
	"github.com/banghyang/scentflow/pkg/flowgraph/template"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the settings file",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one value, e.g. llm.model, after environment expansion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			return errors.New("--config is required")
		}
		cfg, err := config.FromFile(path)
		if err != nil {
			return err
		}
		cfg, err = config.ExpandEnv(cfg, template.EnvVars())
		if err != nil {
			return err
		}
		if !cfg.Has(args[0]) {
			return fmt.Errorf("key %q not set", args[0])
		}

		as, _ := cmd.Flags().GetString("as")
		value, err := typedValue(cfg, args[0], as)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode value: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: llm=%s catalog=%s history=%s lock=%s\n",
			settings.LLM.Provider, settings.Catalog.Driver,
			settings.History.Backend, settings.History.Lock)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configCheckCmd)
	configGetCmd.Flags().String("as", "", "Require a type: string, int, bool, duration or list")
}

// typedValue reads key as the named type. An empty type returns the raw
// value.
func typedValue(cfg config.Config, key, as string) (any, error) {
	var (
		v  any
		ok bool
	)
	switch as {
	case "":
		return cfg.Any(key, nil), nil
	case "string":
		v, ok = cfg.String(key)
	case "int":
		v, ok = cfg.Int(key)
	case "bool":
		v, ok = cfg.Bool(key)
	case "duration":
		var d time.Duration
		d, ok = cfg.Duration(key)
		v = d.String()
	case "list":
		v, ok = cfg.StringSlice(key)
	default:
		return nil, fmt.Errorf("unknown type %q", as)
	}
	if !ok {
		return nil, fmt.Errorf("key %q is not a %s", key, as)
	}
	return v, nil
}
