package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads the NetWeave configuration. If path is non-empty it is
// used directly; otherwise netweave.yaml is searched for in the working
// directory, $HOME/.netweave, and /etc/netweave. Environment variables
// override file values with a NETWEAVE_ prefix (dots become underscores,
// e.g. NETWEAVE_SERVER_PORT).
func LoadConfig(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "netweave.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("NETWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netweave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.netweave")
		v.AddConfigPath("/etc/netweave")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine (defaults + env apply); a broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}
