package openapi

type generatorConfig struct {
	openAPIVersion string
	info           info
	servers        []string
	contentType    string
}

type info struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: info{
			Version: "1.0.0",
		},
		contentType: "application/json",
	}
}

// Option configures the generated document.
type Option func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// WithInfo configures the info block. Empty strings keep the defaults; the
// title defaults to the resource name.
func WithInfo(title, version, description string) Option {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		if description != "" {
			cfg.info.Description = description
		}
	}
}

// WithServer adds a server URL, typically the configured base URL.
func WithServer(url string) Option {
	return func(cfg *generatorConfig) {
		if url != "" {
			cfg.servers = append(cfg.servers, url)
		}
	}
}

// WithContentType sets the media type used for bodies.
func WithContentType(contentType string) Option {
	return func(cfg *generatorConfig) {
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}
