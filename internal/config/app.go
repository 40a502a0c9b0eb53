package config

type AppConfig struct {
	Server ServerConfig
	Arena  ArenaConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	arenaCfg, err := LoadArena()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Arena:  arenaCfg,
		Log:    logCfg,
	}, nil
}
