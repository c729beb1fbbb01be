package config

// EnvPrefix is empty because every variable already carries the BIDHAUS_ prefix
// in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BIDHAUS_DB_DSN"
	EnvDBHost = "BIDHAUS_DB_HOST"
	EnvDBUser = "BIDHAUS_DB_USER"
	EnvDBName = "BIDHAUS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
