package config

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = "ANTITEXT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ANTITEXT_DB_DSN"
	EnvDBHost = "ANTITEXT_DB_HOST"
	EnvDBUser = "ANTITEXT_DB_USER"
	EnvDBName = "ANTITEXT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
