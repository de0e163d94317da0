package constants

const (
	// AppName names the binary, the config directory and the data directory
	AppName = "otpdeck"

	// EnvPrefix prefixes every environment override, e.g. OTPDECK_DB
	EnvPrefix = "OTPDECK"

	// ConfigName is the config file name without extension
	ConfigName = "config"

	// VaultFileName is the default SQLite vault file name
	VaultFileName = "vault.db"

	// BackupFileMode is the permission for exported backups and QR images,
	// both of which hold plaintext secrets
	BackupFileMode = 0o600

	// DataDirMode is the permission for directories created for the vault
	DataDirMode = 0o700
)
