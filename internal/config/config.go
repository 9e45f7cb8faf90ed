package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Alerts struct {
		TelegramToken string `mapstructure:"telegram_token"`
		AdminChatID   int64  `mapstructure:"admin_chat_id"`
	} `mapstructure:"alerts"`

	Estimating struct {
		LaborRate      float64 `mapstructure:"labor_rate"`
		MaterialMarkup float64 `mapstructure:"material_markup"`
		TaxRate        float64 `mapstructure:"tax_rate"`
	} `mapstructure:"estimating"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
