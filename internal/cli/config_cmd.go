package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/srvstats/internal/config"
	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/ui"
)

// configShowCommand prints the effective config, defaults and environment
// overrides included.
func configShowCommand(out io.Writer) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(out, "# no config file found, showing defaults")
	} else {
		fmt.Fprintf(out, "# %s\n", path)
	}
	_, err = out.Write(data)
	return err
}

// configSummary is the data returned by 'config validate --json'.
type configSummary struct {
	Path    string   `json:"path"`
	Hosts   []string `json:"hosts"`
	Metrics int      `json:"metrics"`
}

// configValidateCommand loads and validates the config.
func configValidateCommand(out io.Writer, asJSON bool) error {
	cfg, path, err := loadConfig()
	if err != nil {
		if asJSON {
			if werr := WriteJSONFromError(out, err); werr != nil {
				return werr
			}
			return errNoData
		}
		return err
	}

	if asJSON {
		return WriteJSONSuccess(out, configSummary{Path: path, Hosts: cfg.HostNames(), Metrics: len(cfg.Metrics)})
	}

	where := path
	if where == "" {
		where = "Defaults"
	}
	p := ui.NewPalette(out, noColorFlag)
	fmt.Fprintf(out, "%s %s: valid (%d host(s), %d metric(s))\n",
		p.Color(ui.ColorSuccess, ui.SymbolSuccess), where, len(cfg.Hosts), len(cfg.Metrics))
	return nil
}

// configInitCommand writes the starter config to --config, or to
// .srvstats.yaml in the current directory.
func configInitCommand(out io.Writer, force bool) error {
	path := config.ExpandTilde(cfgFile)
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Can't determine the current directory", "")
		}
		path = filepath.Join(cwd, config.ConfigFileName)
	}

	if err := config.WriteStarter(path, force); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write the config file",
			"Use --force to overwrite an existing file.")
	}

	p := ui.NewPalette(out, noColorFlag)
	fmt.Fprintf(out, "%s Wrote %s\n", p.Color(ui.ColorSuccess, ui.SymbolSuccess), path)
	return nil
}

// configAddMetricCommand appends m to the config file and checks the result
// still validates.
func configAddMetricCommand(out io.Writer, m config.MetricConfig) error {
	path, err := config.Find(cfgFile)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"No config file found",
			"Run 'srvstats config init' first, or point at one with --config.")
	}

	candidate := m
	if candidate.Kind == "" {
		candidate.Kind = "text"
	}
	if candidate.ID == "" {
		candidate.ID = config.MetricID(candidate.Label, candidate.Command)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	for _, existing := range cfg.Metrics {
		if existing.ID == candidate.ID {
			fmt.Fprintf(out, "Metric %s is already in %s\n", candidate.ID, path)
			return nil
		}
	}
	cfg.Metrics = append(cfg.Metrics, candidate)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := config.AddMetric(path, candidate); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't update "+path, "")
	}

	p := ui.NewPalette(out, noColorFlag)
	fmt.Fprintf(out, "%s Added metric %s (%s) to %s\n",
		p.Color(ui.ColorSuccess, ui.SymbolSuccess), candidate.ID, candidate.Label, path)
	return nil
}
