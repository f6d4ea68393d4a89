// Package config defines the client configuration and how it is loaded.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//  1. LoadDefaults
//  2. an optional JSON or YAML file (by extension)
//  3. an optional .env file, then the process environment
//  4. command-line flags, bound by the CLI directly onto a *Config
//
// Recognized environment variables:
//
//	API_URL            BaseURL
//	AUTH_TOKEN_KEY     AuthTokenKey
//	TIMEOUT            Timeout (milliseconds or a Go duration)
//	WITH_CREDENTIALS   WithCredentials
//	PUBLIC_KEY         PublicKey (PEM; literal "\n" sequences allowed)
//	PRIVATE_KEY        PrivateKey
//	DEBUG              IncludeDebugInfo
//	ENCRYPTION_KEY     EncryptionKey
//	APP_ENV            Environment ("production" enables production mode)
//	LOG_LEVEL          LogLevel
package config
