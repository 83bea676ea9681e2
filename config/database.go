package config

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"verifyq"`
	Password string `env:"PASSWORD" envDefault:"verifyq"`
	Name     string `env:"NAME"     envDefault:"verifyq"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains queue backend configuration. An empty Addr means no
// queue backend is configured; every enqueue then runs synchronously.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// Configured reports whether a queue backend address is set.
func (r *RedisConfig) Configured() bool {
	return r.Addr != ""
}
