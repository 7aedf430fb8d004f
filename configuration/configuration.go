package configuration

type Configuration struct {
	Dir        string `usage:"data directory for text stores"`
	FixedFile  string `usage:"file backing the fixed-slot store"`
	Version    bool   `usage:"show version and exit"`
	ShowConfig bool   `usage:"print config"`
	Verbose    bool   `usage:"debug logging"`
}

func Default() Configuration {
	return Configuration{
		Dir:       "data",
		FixedFile: "data/users.slot",
	}
}
