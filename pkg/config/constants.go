package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// VITRINE_* tags so the prefix only matters for untagged additions.
const EnvPrefix = "vitrine"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// DefaultCurrency is the only settlement currency the storefront operates in.
const DefaultCurrency = "BRL"

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// DefaultSQLiteDSN is used when the sqlite dev flag is on but no DSN was
// given. Shared cache keeps every pooled connection on the same in-memory DB.
const DefaultSQLiteDSN = "file:vitrine-dev?mode=memory&cache=shared"

const (
	EnvDBDSN  = "VITRINE_DB_DSN"
	EnvDBHost = "VITRINE_DB_HOST"
	EnvDBUser = "VITRINE_DB_USER"
	EnvDBName = "VITRINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
