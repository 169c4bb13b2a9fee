package overlay

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
)

// JSONConfig describes a quantification run: which regions a mask encodes,
// which preset measures them and where the results go. Command-line flags
// override any of these.
type JSONConfig struct {
	ConfigPath string   `json:"-"`
	Labels     LabelMap `json:"labels"`
	Preset     string   `json:"preset"`
	OutputDir  string   `json:"output_dir"`
	FilePrefix string   `json:"file_prefix"`

	// MaskPath is an optional default for the -mask flag.
	MaskPath string `json:"mask"`
}

// FlowPreset parses the configured preset. An empty preset is the default.
func (c JSONConfig) FlowPreset() (flow.Preset, error) {
	return flow.ParsePreset(c.Preset)
}

func ParseJSONConfigFromPath(path string) (JSONConfig, error) {
	out := JSONConfig{ConfigPath: path}

	f, err := os.Open(expandHomeDir(path))
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&out); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			logrus.WithField("config", path).Errorf("syntax error at byte offset %d", e.Offset)
		}

		return out, pfx.Err(err)
	}

	// Colors are compared as lower case hex
	for k, v := range out.Labels {
		v.Color = strings.ToLower(v.Color)
		out.Labels[k] = v
	}

	if !out.Labels.Valid() {
		return out, pfx.Err(errInvalidLabelMap)
	}

	if _, err := out.FlowPreset(); err != nil {
		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	out.ConfigPath = expandHomeDir(out.ConfigPath)
	out.OutputDir = expandHomeDir(out.OutputDir)
	out.MaskPath = expandHomeDir(out.MaskPath)

	return out, nil
}

// Via https://stackoverflow.com/a/17617721/199475
func expandHomeDir(path string) string {

	usr, err := user.Current()
	if err != nil {
		return path
	}

	dir := usr.HomeDir

	if path == "~" {
		// In case of "~", which won't be caught by the "else if"
		path = dir
	} else if strings.HasPrefix(path, "~/") {
		// Use strings.HasPrefix so we don't match paths like
		// "/something/~/something/"
		path = filepath.Join(dir, path[2:])
	}

	return path
}
