package config

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads config.yaml from defaultPath into config, then merges each of userConfigs on top in order,
// then applies environment variables named envPrefix_KEY, with nested keys joined by underscores.
func LoadConfig(config interface{}, defaultPath string, userConfigs []string, envPrefix string) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading default config from %s", defaultPath)
	}
	log.Debugf("Read base config from %s", v.ConfigFileUsed())

	for _, userConfig := range userConfigs {
		v.SetConfigFile(userConfig)
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "merging config %s", userConfig)
		}
		log.Debugf("Merged config from %s", userConfig)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		return errors.Wrap(err, "decoding config")
	}
	return nil
}
