package models

// DeploymentConfig is built once at load time from the env file plus the
// optional fora.toml overlay. It is never mutated after validation; a
// missing required value fails the run before anything touches the host.
type DeploymentConfig struct {
	AdminEmail    string
	AdminPassword string
	PublicIP      string
	Port          int
	Version       string

	DBRootPassword string
	DBUser         string
	DBPassword     string

	Domain          string
	Extensions      []string
	LanguagePackURL string
	Locale          string
	Timezone        string
	OverlayDir      string
}

// ForaConfig mirrors the optional fora.toml project file. Only optional
// values may come from here; the env file wins when both set a key.
type ForaConfig struct {
	Forum ForumConfig `toml:"forum"`
}

type ForumConfig struct {
	Domain          string   `toml:"domain"`
	Extensions      []string `toml:"extensions"`
	LanguagePackURL string   `toml:"language_pack_url"`
	Locale          string   `toml:"locale"`
	Timezone        string   `toml:"timezone"`
	OverlayDir      string   `toml:"overlay_dir"`
}
