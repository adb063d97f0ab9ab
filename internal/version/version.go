package version

import (
	"os"

	"github.com/goccy/go-json"

	"github.com/JustinTDCT/Videotheque/internal/logging"
)

// Version is set at build time with -ldflags "-X ...version.Version=x.y.z".
// When empty, version.json in the working directory is consulted.
var Version string

const fallback = "0.0.0"

type Info struct {
	Version string `json:"version"`
}

func Load() Info {
	return load("version.json")
}

func load(path string) Info {
	if Version != "" {
		return Info{Version: Version}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn().Err(err).Msg("could not read version.json")
		return Info{Version: fallback}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		logging.Warn().Err(err).Msg("could not parse version.json")
		return Info{Version: fallback}
	}
	return info
}
