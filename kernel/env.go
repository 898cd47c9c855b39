package kernel

var Env = &env{
	WriteLogStd: true,
	LogPath:     "", // empty: no log file, see WriteLogStd
}

type env struct {
	LogPath     string `yaml:"log_path"`
	WriteLogStd bool   `yaml:"write_log_std"`
}
