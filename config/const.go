package config

const (
	FlagConfigPath         = "config-path"
	FlagConfigType         = "config-type"
	FlagConfigAwsRegion    = "aws-region"
	FlagConfigAwsSecretKey = "aws-secret-key"
	FlagConfigBotToken     = "bot-token"
	FlagConfigDbPass       = "db-pass"

	DBDialectMysql   = "mysql"
	DBDialectSqlite3 = "sqlite3"

	LocalConfig = "local"
	AWSConfig   = "aws"

	KeyTypeLocalSecret = "local_secret"
	KeyTypeAWSSecret   = "aws_secret"
)
